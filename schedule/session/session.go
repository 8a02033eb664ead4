package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/course-scheduler/schedule/document"
)

// Session is one connected participant
type Session struct {
	connectionID string
	registry     *Registry
	connectedAt  time.Time

	// mu serializes the join protocol
	mu          sync.Mutex
	state       State
	name        string
	doc         *document.SharedDocument
	unsubscribe func()
	joinedAt    time.Time

	// feedMu orders pushes to the notifier; never held while mu is acquired
	feedMu     sync.Mutex
	feedUser   string
	feedClosed bool
	lastShared uint64
	sharedSent bool
	view       *document.PersonalView
}

func newSession(connectionID string, registry *Registry) *Session {
	return &Session{
		connectionID: connectionID,
		registry:     registry,
		connectedAt:  time.Now(),
		state:        StateUnjoined,
	}
}

// ConnectionID returns the transport connection identifier
func (s *Session) ConnectionID() string {
	return s.connectionID
}

// Name returns the claimed user name, or "" before CompleteJoin
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// State returns the join protocol state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Document returns the joined schedule, or nil before BeginJoin
func (s *Session) Document() *document.SharedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// ScheduleID returns the ID of the joined schedule, or ""
func (s *Session) ScheduleID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ""
	}
	return s.doc.ID()
}

// PersonalView returns the latest personal view, or nil before CompleteJoin
func (s *Session) PersonalView() *document.PersonalView {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	return s.view
}

// ConnectedAt returns when the session was registered
func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

// JoinedAt returns when the user name was claimed
func (s *Session) JoinedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joinedAt
}

// MarshalJSON exposes only the user name and joined schedule
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name       string `json:"name,omitempty"`
		ScheduleID string `json:"schedule_id,omitempty"`
	}{
		Name:       s.Name(),
		ScheduleID: s.ScheduleID(),
	})
}

// BeginJoin attaches the session to the schedule with the given ID,
// loading it if needed, and starts the shared feed
func (s *Session) BeginJoin(ctx context.Context, scheduleID string) (*document.SharedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUnjoined {
		return nil, fmt.Errorf("%w: the client has already joined a schedule", ErrIllegalState)
	}

	doc, err := s.registry.pool.Acquire(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	s.attachLocked(doc)
	return doc, nil
}

// CompleteJoin claims userName in the joined schedule and starts the
// personal feed. The name is either one of the schedule's available names
// or a new one.
func (s *Session) CompleteJoin(userName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.name != "" || s.state == StateJoined:
		return fmt.Errorf("%w: the client has already joined as '%s'", ErrIllegalState, s.name)
	case s.state != StateJoining:
		return fmt.Errorf("%w: cannot complete join in state %s", ErrIllegalState, s.state)
	}

	return s.claimLocked(userName)
}

// CreateSchedule creates a new schedule and joins it as userName.
// On failure the session stays unjoined.
func (s *Session) CreateSchedule(ctx context.Context, userName string) (*document.SharedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUnjoined {
		return nil, fmt.Errorf("%w: the client has already joined a schedule", ErrIllegalState)
	}
	if err := document.ValidateName(userName); err != nil {
		return nil, err
	}

	created, err := s.registry.pool.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	doc, err := s.registry.pool.Acquire(ctx, created.ID())
	if err != nil {
		s.discard(created)
		return nil, err
	}

	s.attachLocked(doc)
	if err := s.claimLocked(userName); err != nil {
		s.detachLocked()
		s.resetLocked()
		s.discard(doc)
		return nil, err
	}

	return doc, nil
}

// discard drops a schedule created by a failed CreateSchedule
func (s *Session) discard(doc *document.SharedDocument) {
	if err := s.registry.pool.Discard(doc); err != nil {
		s.registry.log.Warn("failed to discard schedule", "conn", s.connectionID, "schedule", doc.ID(), "err", err)
	}
}

func (s *Session) attachLocked(doc *document.SharedDocument) {
	s.doc = doc
	s.state = StateJoining
	s.unsubscribe = doc.Subscribe(s.onChange)
	s.pushShared(doc.Snapshot())

	s.registry.log.Debug("join started", "conn", s.connectionID, "schedule", doc.ID())
}

func (s *Session) claimLocked(userName string) error {
	if err := document.ValidateName(userName); err != nil {
		return err
	}

	if err := s.doc.Claim(userName, s); err != nil {
		return err
	}

	s.name = userName
	s.state = StateJoined
	s.joinedAt = time.Now()
	s.startPersonalFeed(userName)

	s.registry.log.Info("user joined", "conn", s.connectionID, "schedule", s.doc.ID(), "user", userName)
	return nil
}

// resetLocked returns a detached session to the unjoined state
func (s *Session) resetLocked() {
	s.doc = nil
	s.name = ""
	s.state = StateUnjoined

	s.feedMu.Lock()
	s.feedClosed = false
	s.feedUser = ""
	s.sharedSent = false
	s.lastShared = 0
	s.view = nil
	s.feedMu.Unlock()
}

// AddCourse selects a catalog course in the joined schedule
func (s *Session) AddCourse(ctx context.Context, courseID string) error {
	doc, name, err := s.joined()
	if err != nil {
		return err
	}
	if s.registry.courses == nil {
		return fmt.Errorf("%w: no course catalog configured", ErrIllegalState)
	}

	course, err := s.registry.courses.Lookup(ctx, courseID)
	if err != nil {
		return err
	}

	return doc.AddCourse(course, name)
}

// RemoveCourse deselects a course in the joined schedule
func (s *Session) RemoveCourse(courseID string) error {
	doc, _, err := s.joined()
	if err != nil {
		return err
	}
	return doc.RemoveCourse(courseID)
}

// Leave detaches the session from its schedule and releases its name.
// Calling Leave on a session that already left is a no-op.
func (s *Session) Leave() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateLeft:
		return nil
	case StateUnjoined:
		return fmt.Errorf("%w: the client has not joined a schedule", ErrIllegalState)
	}

	s.detachLocked()
	return nil
}

// close detaches from any state; used when the connection goes away
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLeft {
		return
	}
	s.detachLocked()
}

func (s *Session) detachLocked() {
	s.feedMu.Lock()
	s.feedClosed = true
	s.feedMu.Unlock()

	if s.doc != nil {
		if s.unsubscribe != nil {
			s.unsubscribe()
			s.unsubscribe = nil
		}
		if s.name != "" {
			s.doc.Release(s.name, s)
			s.registry.log.Info("user left", "conn", s.connectionID, "schedule", s.doc.ID(), "user", s.name)
		}
		s.registry.pool.Release(s.doc)
	}

	s.state = StateLeft
}

func (s *Session) joined() (*document.SharedDocument, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoined {
		return nil, "", fmt.Errorf("%w: the client has not completed joining a schedule", ErrIllegalState)
	}
	return s.doc, s.name, nil
}

// onChange runs for every change of the joined schedule
func (s *Session) onChange(snap document.Snapshot) {
	s.pushShared(snap)

	s.feedMu.Lock()
	defer s.feedMu.Unlock()

	if s.feedClosed || s.feedUser == "" {
		return
	}
	if s.view != nil && snap.Version <= s.view.Version {
		return
	}
	s.view = document.NewPersonalView(s.feedUser, snap)
	s.registry.notifier.PersonalViewChanged(s.connectionID, s.view)
}

func (s *Session) pushShared(snap document.Snapshot) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()

	if s.feedClosed || (s.sharedSent && snap.Version <= s.lastShared) {
		return
	}
	s.lastShared = snap.Version
	s.sharedSent = true
	s.registry.notifier.ScheduleChanged(s.connectionID, snap)
}

// startPersonalFeed builds the first view. The snapshot is taken under feedMu
// so a change that onChange skipped before feedUser was set is not lost.
func (s *Session) startPersonalFeed(user string) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()

	s.feedUser = user
	snap := s.doc.Snapshot()
	if s.view != nil && snap.Version <= s.view.Version {
		return
	}
	s.view = document.NewPersonalView(user, snap)
	s.registry.notifier.PersonalViewChanged(s.connectionID, s.view)
}
