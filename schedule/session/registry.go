package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/course-scheduler/schedule/catalog"
	"github.com/wricardo/course-scheduler/schedule/document"
)

var (
	// ErrIllegalState is returned when an operation is not allowed in the
	// session's current state
	ErrIllegalState   = errors.New("illegal state")
	ErrClientExists   = fmt.Errorf("%w: client already registered", ErrIllegalState)
	ErrClientNotFound = errors.New("client not found")
	ErrInvalidClient  = errors.New("invalid connection id")
)

// Pool provides shared schedules to sessions
type Pool interface {
	Acquire(ctx context.Context, id string) (*document.SharedDocument, error)
	Release(doc *document.SharedDocument)
	Create(ctx context.Context) (*document.SharedDocument, error)
	Discard(doc *document.SharedDocument) error
}

// CourseLookup resolves course IDs against the catalog
type CourseLookup interface {
	Lookup(ctx context.Context, id string) (catalog.Course, error)
}

// Registry maps connection IDs to sessions
type Registry struct {
	clients  map[string]*Session
	pool     Pool
	courses  CourseLookup
	notifier Notifier
	log      log15.Logger
	mu       sync.RWMutex
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithNotifier sets the receiver of the shared and personal feeds
func WithNotifier(n Notifier) RegistryOption {
	return func(r *Registry) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithCourses sets the catalog used to resolve added courses
func WithCourses(c CourseLookup) RegistryOption {
	return func(r *Registry) { r.courses = c }
}

// WithLogger sets the logger for registry and session events
func WithLogger(l log15.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// NewRegistry creates an empty registry backed by the given pool
func NewRegistry(pool Pool, opts ...RegistryOption) *Registry {
	r := &Registry{
		clients:  make(map[string]*Session),
		pool:     pool,
		notifier: nopNotifier{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = log15.New()
		r.log.SetHandler(log15.DiscardHandler())
	}
	return r
}

// AddClient registers a new unjoined session for the connection
func (r *Registry) AddClient(connectionID string) (*Session, error) {
	if strings.TrimSpace(connectionID) == "" {
		return nil, ErrInvalidClient
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[connectionID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrClientExists, connectionID)
	}

	s := newSession(connectionID, r)
	r.clients[connectionID] = s
	r.log.Debug("client added", "conn", connectionID)
	return s, nil
}

// RemoveClient unregisters the connection, leaving its schedule first.
// Returns false if the connection was not registered.
func (r *Registry) RemoveClient(connectionID string) bool {
	r.mu.Lock()
	s, exists := r.clients[connectionID]
	if exists {
		delete(r.clients, connectionID)
	}
	r.mu.Unlock()

	if !exists {
		return false
	}

	s.close()
	r.log.Debug("client removed", "conn", connectionID)
	return true
}

// GetClient returns the session registered for the connection
func (r *Registry) GetClient(connectionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.clients[connectionID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, connectionID)
	}
	return s, nil
}

// List returns all sessions ordered by connection ID
func (r *Registry) List() []*Session {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.clients))
	for _, s := range r.clients {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].connectionID < sessions[j].connectionID
	})
	return sessions
}

// Count returns the number of registered clients
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close removes every client
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.clients))
	for id, s := range r.clients {
		sessions = append(sessions, s)
		delete(r.clients, id)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
