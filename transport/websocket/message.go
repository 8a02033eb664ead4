package websocket

// Event names of outbound messages
const (
	EventConnected      = "connected"
	EventResult         = "result"
	EventError          = "error"
	EventScheduleUpdate = "schedule_update"
	EventPersonalUpdate = "personal_update"
)

// Actions accepted from clients
const (
	ActionBeginJoin      = "begin_join"
	ActionCompleteJoin   = "complete_join"
	ActionCreateSchedule = "create_schedule"
	ActionLeave          = "leave"
	ActionAddCourse      = "add_course"
	ActionRemoveCourse   = "remove_course"
	ActionSearchCourses  = "search_courses"
)

// Request is a client RPC
type Request struct {
	ID         int64  `json:"id"`
	Action     string `json:"action"`
	ScheduleID string `json:"schedule_id,omitempty"`
	UserName   string `json:"user_name,omitempty"`
	CourseID   string `json:"course_id,omitempty"`
	Query      string `json:"query,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// Message represents an outbound WebSocket message
type Message struct {
	Event      string      `json:"event"`
	ID         int64       `json:"id,omitempty"`
	ScheduleID string      `json:"schedule_id,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Code           string   `json:"code"`
	Message        string   `json:"message"`
	AvailableNames []string `json:"available_names,omitempty"`
}
