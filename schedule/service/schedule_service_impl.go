package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/course-scheduler/schedule/catalog"
	"github.com/wricardo/course-scheduler/schedule/document"
	"github.com/wricardo/course-scheduler/schedule/session"
)

// scheduleServiceImpl implements the ScheduleService interface
type scheduleServiceImpl struct {
	clients   ClientRegistry
	schedules ScheduleStore
	courses   CourseCatalog
	log       log15.Logger
}

// Option configures the schedule service
type Option func(*scheduleServiceImpl)

// WithLogger sets the service logger
func WithLogger(l log15.Logger) Option {
	return func(s *scheduleServiceImpl) { s.log = l }
}

// NewScheduleService creates a new schedule service instance
func NewScheduleService(clients ClientRegistry, schedules ScheduleStore, courses CourseCatalog, opts ...Option) ScheduleService {
	s := &scheduleServiceImpl{
		clients:   clients,
		schedules: schedules,
		courses:   courses,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log15.New("module", "service")
		s.log.SetHandler(log15.DiscardHandler())
	}
	return s
}

// Connect registers a new connection
func (s *scheduleServiceImpl) Connect(ctx context.Context, connectionID string) (*ClientInfo, error) {
	sess, err := s.clients.AddClient(connectionID)
	if err != nil {
		return nil, err
	}
	return clientInfo(sess), nil
}

// Disconnect unregisters a connection, leaving its schedule
func (s *scheduleServiceImpl) Disconnect(ctx context.Context, connectionID string) bool {
	return s.clients.RemoveClient(connectionID)
}

// GetClient retrieves client information
func (s *scheduleServiceImpl) GetClient(ctx context.Context, connectionID string) (*ClientInfo, error) {
	sess, err := s.clients.GetClient(connectionID)
	if err != nil {
		return nil, err
	}
	return clientInfo(sess), nil
}

// ListClients returns all connected clients
func (s *scheduleServiceImpl) ListClients(ctx context.Context) ([]*ClientInfo, error) {
	sessions := s.clients.List()
	result := make([]*ClientInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, clientInfo(sess))
	}
	return result, nil
}

// BeginJoin attaches the connection to a schedule
func (s *scheduleServiceImpl) BeginJoin(ctx context.Context, connectionID, scheduleID string) (*ScheduleInfo, error) {
	sess, err := s.clients.GetClient(connectionID)
	if err != nil {
		return nil, err
	}

	doc, err := sess.BeginJoin(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	return s.scheduleInfo(doc), nil
}

// CompleteJoin claims a user name for the connection
func (s *scheduleServiceImpl) CompleteJoin(ctx context.Context, connectionID, userName string) (*document.PersonalView, error) {
	sess, err := s.clients.GetClient(connectionID)
	if err != nil {
		return nil, err
	}

	if err := sess.CompleteJoin(userName); err != nil {
		if ErrorCode(err) == CodeConflict {
			s.log.Debug("name conflict", "conn", connectionID, "schedule", sess.ScheduleID(), "name", userName)
		}
		return nil, err
	}

	return sess.PersonalView(), nil
}

// CreateSchedule creates a schedule and joins it
func (s *scheduleServiceImpl) CreateSchedule(ctx context.Context, connectionID, userName string) (*JoinResult, error) {
	sess, err := s.clients.GetClient(connectionID)
	if err != nil {
		return nil, err
	}

	doc, err := sess.CreateSchedule(ctx, userName)
	if err != nil {
		return nil, err
	}

	return &JoinResult{
		Schedule: s.scheduleInfo(doc),
		View:     sess.PersonalView(),
	}, nil
}

// Leave detaches the connection from its schedule
func (s *scheduleServiceImpl) Leave(ctx context.Context, connectionID string) error {
	sess, err := s.clients.GetClient(connectionID)
	if err != nil {
		return err
	}
	return sess.Leave()
}

// AddCourse selects a course in the connection's schedule
func (s *scheduleServiceImpl) AddCourse(ctx context.Context, connectionID, courseID string) (*document.PersonalView, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, fmt.Errorf("%w: course_id is required", ErrInvalidArgument)
	}

	sess, err := s.clients.GetClient(connectionID)
	if err != nil {
		return nil, err
	}
	if err := sess.AddCourse(ctx, courseID); err != nil {
		return nil, err
	}

	return sess.PersonalView(), nil
}

// RemoveCourse deselects a course in the connection's schedule
func (s *scheduleServiceImpl) RemoveCourse(ctx context.Context, connectionID, courseID string) (*document.PersonalView, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, fmt.Errorf("%w: course_id is required", ErrInvalidArgument)
	}

	sess, err := s.clients.GetClient(connectionID)
	if err != nil {
		return nil, err
	}
	if err := sess.RemoveCourse(courseID); err != nil {
		return nil, err
	}

	return sess.PersonalView(), nil
}

// ListSchedules returns the loaded schedules followed by the persisted ones
// that are not loaded. Only the ID is reported for the latter.
func (s *scheduleServiceImpl) ListSchedules(ctx context.Context) ([]*ScheduleInfo, error) {
	docs := s.schedules.List()
	stored, err := s.schedules.Stored()
	if err != nil {
		return nil, fmt.Errorf("failed to list stored schedules: %w", err)
	}

	result := make([]*ScheduleInfo, 0, len(docs)+len(stored))
	for _, doc := range docs {
		result = append(result, s.scheduleInfo(doc))
	}
	for _, id := range stored {
		result = append(result, &ScheduleInfo{ID: id, Courses: []document.SelectedCourse{}, Users: []string{}, AvailableNames: []string{}})
	}
	return result, nil
}

// GetSchedule returns a loaded or persisted schedule
func (s *scheduleServiceImpl) GetSchedule(ctx context.Context, scheduleID string) (*ScheduleInfo, error) {
	doc, err := s.schedules.Lookup(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return s.scheduleInfo(doc), nil
}

// SearchCourses returns catalog courses matching query, at most limit when
// limit is positive
func (s *scheduleServiceImpl) SearchCourses(ctx context.Context, query string, limit int) (*CourseSearchResult, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidArgument)
	}

	courses, err := s.courses.LoadCourses(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search courses: %w", err)
	}

	result := &CourseSearchResult{
		Query:   query,
		Courses: courses,
		Total:   len(courses),
	}
	if limit > 0 && len(courses) > limit {
		result.Courses = courses[:limit]
		result.Truncated = true
	}

	return result, nil
}

// ListCatalogs returns the available catalog files
func (s *scheduleServiceImpl) ListCatalogs(ctx context.Context) ([]*catalog.FileInfo, error) {
	infos, err := s.courses.ListFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to list catalogs: %w", err)
	}
	if infos == nil {
		infos = []*catalog.FileInfo{}
	}
	return infos, nil
}

func (s *scheduleServiceImpl) scheduleInfo(doc *document.SharedDocument) *ScheduleInfo {
	snap := doc.Snapshot()
	return &ScheduleInfo{
		ID:             snap.ID,
		Loaded:         true,
		Version:        snap.Version,
		Courses:        snap.Courses,
		CourseCount:    len(snap.Courses),
		Users:          snap.Users,
		AvailableNames: snap.AvailableNames,
		Attached:       s.schedules.Attached(snap.ID),
		CreatedAt:      snap.CreatedAt,
		ModifiedAt:     snap.ModifiedAt,
	}
}

func clientInfo(sess *session.Session) *ClientInfo {
	return &ClientInfo{
		ConnectionID: sess.ConnectionID(),
		Name:         sess.Name(),
		ScheduleID:   sess.ScheduleID(),
		State:        sess.State().String(),
		ConnectedAt:  sess.ConnectedAt(),
		JoinedAt:     sess.JoinedAt(),
	}
}
