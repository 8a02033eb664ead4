package service

import (
	"time"

	"github.com/wricardo/course-scheduler/schedule/catalog"
	"github.com/wricardo/course-scheduler/schedule/document"
)

// ClientInfo describes a connected client
type ClientInfo struct {
	ConnectionID string    `json:"connection_id"`
	Name         string    `json:"name,omitempty"`
	ScheduleID   string    `json:"schedule_id,omitempty"`
	State        string    `json:"state"`
	ConnectedAt  time.Time `json:"connected_at"`
	JoinedAt     time.Time `json:"joined_at,omitempty"`
}

// ScheduleInfo describes a shared schedule
type ScheduleInfo struct {
	ID             string                    `json:"id"`
	Loaded         bool                      `json:"loaded"`
	Version        uint64                    `json:"version"`
	Courses        []document.SelectedCourse `json:"courses"`
	CourseCount    int                       `json:"course_count"`
	Users          []string                  `json:"users"`
	AvailableNames []string                  `json:"available_names"`
	Attached       int                       `json:"attached"`
	CreatedAt      time.Time                 `json:"created_at"`
	ModifiedAt     time.Time                 `json:"modified_at"`
}

// JoinResult is returned when a client creates and joins a schedule
type JoinResult struct {
	Schedule *ScheduleInfo          `json:"schedule"`
	View     *document.PersonalView `json:"view"`
}

// CourseSearchResult contains the courses matching a query
type CourseSearchResult struct {
	Query     string           `json:"query"`
	Courses   []catalog.Course `json:"courses"`
	Total     int              `json:"total"`
	Truncated bool             `json:"truncated,omitempty"`
}
