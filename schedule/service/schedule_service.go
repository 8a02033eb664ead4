package service

import (
	"context"

	"github.com/wricardo/course-scheduler/schedule/catalog"
	"github.com/wricardo/course-scheduler/schedule/document"
	"github.com/wricardo/course-scheduler/schedule/session"
)

// ScheduleService defines all operations exposed to transports
type ScheduleService interface {
	// Connections
	Connect(ctx context.Context, connectionID string) (*ClientInfo, error)
	Disconnect(ctx context.Context, connectionID string) bool
	GetClient(ctx context.Context, connectionID string) (*ClientInfo, error)
	ListClients(ctx context.Context) ([]*ClientInfo, error)

	// Join protocol
	BeginJoin(ctx context.Context, connectionID, scheduleID string) (*ScheduleInfo, error)
	CompleteJoin(ctx context.Context, connectionID, userName string) (*document.PersonalView, error)
	CreateSchedule(ctx context.Context, connectionID, userName string) (*JoinResult, error)
	Leave(ctx context.Context, connectionID string) error

	// Editing
	AddCourse(ctx context.Context, connectionID, courseID string) (*document.PersonalView, error)
	RemoveCourse(ctx context.Context, connectionID, courseID string) (*document.PersonalView, error)

	// Inspection
	ListSchedules(ctx context.Context) ([]*ScheduleInfo, error)
	GetSchedule(ctx context.Context, scheduleID string) (*ScheduleInfo, error)

	// Catalog
	SearchCourses(ctx context.Context, query string, limit int) (*CourseSearchResult, error)
	ListCatalogs(ctx context.Context) ([]*catalog.FileInfo, error)
}

// ClientRegistry maps connections to sessions
type ClientRegistry interface {
	AddClient(connectionID string) (*session.Session, error)
	RemoveClient(connectionID string) bool
	GetClient(connectionID string) (*session.Session, error)
	List() []*session.Session
}

// ScheduleStore gives read access to shared schedules
type ScheduleStore interface {
	List() []*document.SharedDocument
	Lookup(ctx context.Context, id string) (*document.SharedDocument, error)
	Attached(id string) int
	Stored() ([]string, error)
}

// CourseCatalog searches the course catalog
type CourseCatalog interface {
	LoadCourses(ctx context.Context, filter string) ([]catalog.Course, error)
	ListFiles() ([]*catalog.FileInfo, error)
}
