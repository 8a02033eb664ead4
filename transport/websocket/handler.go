package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/course-scheduler/schedule/service"
)

// Handler upgrades HTTP requests and dispatches client requests to the
// schedule service
type Handler struct {
	hub      *Hub
	service  service.ScheduleService
	upgrader websocket.Upgrader
	origins  map[string]bool
	newID    func() string
	log      log15.Logger
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithAllowedOrigins restricts the Origin header of upgrade requests.
// An empty list or "*" allows every origin.
func WithAllowedOrigins(origins []string) HandlerOption {
	return func(h *Handler) {
		h.origins = make(map[string]bool, len(origins))
		for _, o := range origins {
			h.origins[o] = true
		}
	}
}

// WithConnectionIDs overrides the connection ID generator
func WithConnectionIDs(gen func() string) HandlerOption {
	return func(h *Handler) { h.newID = gen }
}

// WithLogger sets the handler's logger
func WithLogger(l log15.Logger) HandlerOption {
	return func(h *Handler) { h.log = l }
}

// NewHandler creates a WebSocket handler
func NewHandler(hub *Hub, svc service.ScheduleService, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub:     hub,
		service: svc,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = hub.log
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP handles WebSocket requests from clients
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	// The request context ends with this handler; the connection outlives it
	ctx, cancel := context.WithCancel(context.Background())

	client := newClient(h.hub, h.newID())
	client.handler = h
	client.conn = conn

	info, err := h.service.Connect(ctx, client.id)
	if err != nil {
		h.log.Error("failed to register client", "conn", client.id, "err", err)
		cancel()
		conn.Close()
		return
	}
	if !h.hub.add(client) {
		h.service.Disconnect(ctx, client.id)
		cancel()
		conn.Close()
		return
	}

	h.log.Info("client connected", "conn", client.id, "remote", r.RemoteAddr)

	hello, _ := json.Marshal(&Message{Event: EventConnected, Data: info})
	client.enqueue(hello)

	go client.writePump()
	go func() {
		defer cancel()
		client.readPump(ctx)
	}()
}

func (h *Handler) disconnect(c *Client) {
	h.service.Disconnect(context.Background(), c.id)
	h.log.Info("client disconnected", "conn", c.id)
}

// handle decodes one request and returns its reply
func (h *Handler) handle(ctx context.Context, connectionID string, data []byte) *Message {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorReply(0, fmt.Errorf("%w: malformed request: %v", service.ErrInvalidArgument, err))
	}

	result, err := h.dispatch(ctx, connectionID, &req)
	if err != nil {
		code := service.ErrorCode(err)
		if code == service.CodeInternal {
			h.log.Error("request failed", "conn", connectionID, "action", req.Action, "err", err)
		}
		return errorReply(req.ID, err)
	}

	return &Message{Event: EventResult, ID: req.ID, Data: result}
}

func (h *Handler) dispatch(ctx context.Context, connectionID string, req *Request) (interface{}, error) {
	switch req.Action {
	case ActionBeginJoin:
		return h.service.BeginJoin(ctx, connectionID, req.ScheduleID)
	case ActionCompleteJoin:
		return h.service.CompleteJoin(ctx, connectionID, req.UserName)
	case ActionCreateSchedule:
		return h.service.CreateSchedule(ctx, connectionID, req.UserName)
	case ActionLeave:
		if err := h.service.Leave(ctx, connectionID); err != nil {
			return nil, err
		}
		return h.service.GetClient(ctx, connectionID)
	case ActionAddCourse:
		return h.service.AddCourse(ctx, connectionID, req.CourseID)
	case ActionRemoveCourse:
		return h.service.RemoveCourse(ctx, connectionID, req.CourseID)
	case ActionSearchCourses:
		return h.service.SearchCourses(ctx, req.Query, req.Limit)
	default:
		return nil, fmt.Errorf("%w: unknown action '%s'", service.ErrInvalidArgument, req.Action)
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.origins) == 0 || h.origins["*"] {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || h.origins[origin]
}

func errorReply(id int64, err error) *Message {
	return &Message{
		Event: EventError,
		ID:    id,
		Error: &ErrorBody{
			Code:           string(service.ErrorCode(err)),
			Message:        err.Error(),
			AvailableNames: service.AvailableNames(err),
		},
	}
}
