package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/course-scheduler/schedule/service"
)

// Client serves MCP tools backed by the scheduler REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	version    string
}

// NewClient returns a Client whose tools call the API at baseURL
func NewClient(baseURL, version string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		version: version,
	}

	c.initMCPServer()
	return c
}

// initMCPServer builds the MCP server and its tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Course Scheduler",
		c.version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Course Scheduler - MCP Interface

Every tool reads from the scheduler REST API.
Schedules are edited collaboratively over WebSocket; these tools inspect
them and search the course catalog.

AVAILABLE TOOLS:
- list_schedules: List loaded schedules with their users
- get_schedule: Get one schedule with its selected courses
- search_courses: Search the course catalog by name, short name or category`),
	)

	c.registerTools()
}

// registerTools adds the read-only schedule and catalog tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_schedules",
		Description: "List all loaded schedules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSchedules)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_schedule",
		Description: "Get a schedule with its selected courses, users and available names",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"schedule_id": map[string]interface{}{
					"type":        "string",
					"description": "Schedule ID",
				},
			},
			Required: []string{"schedule_id"},
		},
	}, c.handleGetSchedule)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "search_courses",
		Description: "Search the course catalog",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Case-insensitive text matched against course name, short name and category (empty lists everything)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of courses to return",
				},
			},
		},
	}, c.handleSearchCourses)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeHTTP handles single JSON-RPC messages posted to the /mcp endpoint
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)
	if response == nil {
		// Notifications have no response
		w.WriteHeader(http.StatusAccepted)
		return
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(responseData)
}

// ServeStdio serves MCP over stdin/stdout until the input is closed
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) handleListSchedules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count     int                     `json:"count"`
		Schedules []*service.ScheduleInfo `json:"schedules"`
	}

	if err := c.apiCall(ctx, "GET", "/api/schedules", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Schedules (%d):\n\n", response.Count)
	for _, s := range response.Schedules {
		if !s.Loaded {
			fmt.Fprintf(&b, "- %s (stored, not loaded)\n", s.ID)
			continue
		}
		users := "nobody"
		if len(s.Users) > 0 {
			users = strings.Join(s.Users, ", ")
		}
		fmt.Fprintf(&b, "- %s (Courses: %d, Users: %s, Modified: %s)\n",
			s.ID, s.CourseCount, users, s.ModifiedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSchedule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	scheduleID, _ := args["schedule_id"].(string)
	if strings.TrimSpace(scheduleID) == "" {
		return mcp.NewToolResultError("schedule_id is required"), nil
	}

	var schedule service.ScheduleInfo
	err := c.apiCall(ctx, "GET", "/api/schedules/"+url.PathEscape(scheduleID), nil, &schedule)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSchedule(&schedule)), nil
}

func (c *Client) handleSearchCourses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	query, _ := args["query"].(string)

	params := url.Values{}
	params.Set("q", query)
	// JSON numbers arrive as float64
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", int(limit)))
	}

	var result service.CourseSearchResult
	if err := c.apiCall(ctx, "GET", "/api/courses?"+params.Encode(), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCourseSearch(&result)), nil
}

func formatSchedule(s *service.ScheduleInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Schedule %s (version %d)\n", s.ID, s.Version)
	fmt.Fprintf(&b, "Users: %s\n", joinOrNone(s.Users))
	fmt.Fprintf(&b, "Available names: %s\n", joinOrNone(s.AvailableNames))
	fmt.Fprintf(&b, "Connected sessions: %d\n", s.Attached)
	fmt.Fprintf(&b, "\nCourses (%d):\n", len(s.Courses))
	if len(s.Courses) == 0 {
		b.WriteString("(no courses selected)\n")
	}
	for _, c := range s.Courses {
		line := fmt.Sprintf("- %s %s", c.Course.ID, c.Course.Name)
		if c.AddedBy != "" {
			line += fmt.Sprintf(" [added by %s]", c.AddedBy)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func formatCourseSearch(r *service.CourseSearchResult) string {
	var b strings.Builder
	if r.Query == "" {
		fmt.Fprintf(&b, "Courses (%d):\n\n", r.Total)
	} else {
		fmt.Fprintf(&b, "Courses matching '%s' (%d):\n\n", r.Query, r.Total)
	}
	for _, c := range r.Courses {
		fmt.Fprintf(&b, "- %s: %s", c.ID, c.Name)
		if c.Category != "" {
			fmt.Fprintf(&b, " (%s)", c.Category)
		}
		if c.Lecturer != "" {
			fmt.Fprintf(&b, ", %s", c.Lecturer)
		}
		b.WriteString("\n")
	}
	if r.Truncated {
		fmt.Fprintf(&b, "\n(showing %d of %d)\n", len(r.Courses), r.Total)
	}
	return b.String()
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
