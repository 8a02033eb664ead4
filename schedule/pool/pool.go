package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inconshreveable/log15/v3"
	"golang.org/x/sync/singleflight"

	"github.com/wricardo/course-scheduler/schedule/catalog"
	"github.com/wricardo/course-scheduler/schedule/document"
)

var (
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrScheduleExists    = errors.New("schedule already exists")
	ErrInvalidScheduleID = errors.New("invalid schedule ID")
	ErrScheduleInUse     = errors.New("schedule is in use")
)

// CourseSource materializes the initial content of new schedules
type CourseSource interface {
	LoadCourses(ctx context.Context, filter string) ([]catalog.Course, error)
}

// Pool owns the schedules currently loaded in memory
type Pool struct {
	entries     map[string]*entry
	source      CourseSource
	persistence Persistence
	seedFilter  string
	seedCount   int
	newID       func() string
	loads       singleflight.Group
	log         log15.Logger
	mu          sync.RWMutex
}

type entry struct {
	doc        *document.SharedDocument
	attached   int
	lastAccess time.Time

	saveMu       sync.Mutex
	savedVersion uint64
	discarded    bool
	unsubscribe  func()
}

// Option configures a Pool
type Option func(*Pool)

// WithPersistence enables write-through persistence of schedules
func WithPersistence(p Persistence) Option {
	return func(pl *Pool) { pl.persistence = p }
}

// WithSeed seeds schedules that have no persisted state with the first
// count catalog courses matching filter
func WithSeed(filter string, count int) Option {
	return func(pl *Pool) {
		pl.seedFilter = filter
		pl.seedCount = count
	}
}

// WithLogger sets the pool logger
func WithLogger(l log15.Logger) Option {
	return func(pl *Pool) { pl.log = l }
}

// WithIDGenerator overrides the schedule ID generator
func WithIDGenerator(gen func() string) Option {
	return func(pl *Pool) { pl.newID = gen }
}

// New creates a schedule pool backed by source
func New(source CourseSource, opts ...Option) *Pool {
	p := &Pool{
		entries: make(map[string]*entry),
		source:  source,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = log15.New("module", "pool")
		p.log.SetHandler(log15.DiscardHandler())
	}
	return p
}

// GetOrLoad returns the schedule with the given ID, loading it on first use.
// All callers receive the same instance for the same ID.
func (p *Pool) GetOrLoad(ctx context.Context, id string) (*document.SharedDocument, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	if doc, ok := p.touch(id); ok {
		return doc, nil
	}

	// The shared load outlives any single caller; each caller only stops waiting.
	loadCtx := context.WithoutCancel(ctx)
	ch := p.loads.DoChan(id, func() (interface{}, error) {
		// Double-check: a previous flight may have finished already
		if doc, ok := p.touch(id); ok {
			return doc, nil
		}

		doc, err := p.load(loadCtx, id)
		if err != nil {
			return nil, err
		}

		return p.insert(doc, true), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to load schedule %s: %w", id, res.Err)
		}
		return res.Val.(*document.SharedDocument), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Acquire loads a schedule and pins it so it cannot be evicted until the
// matching Release
func (p *Pool) Acquire(ctx context.Context, id string) (*document.SharedDocument, error) {
	for {
		doc, err := p.GetOrLoad(ctx, id)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		e, ok := p.entries[id]
		if ok && e.doc == doc {
			e.attached++
			e.lastAccess = time.Now()
			p.mu.Unlock()
			return doc, nil
		}
		p.mu.Unlock()

		// Evicted between load and pin; load again
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// Release unpins a schedule returned by Acquire
func (p *Pool) Release(doc *document.SharedDocument) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[doc.ID()]; ok && e.doc == doc && e.attached > 0 {
		e.attached--
		e.lastAccess = time.Now()
	}
}

// Create registers a new empty schedule under a fresh unique ID
func (p *Pool) Create(ctx context.Context) (*document.SharedDocument, error) {
	for attempt := 0; attempt < 3; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := p.newID()
		if err := ValidateID(id); err != nil {
			return nil, err
		}
		if p.persistence != nil && p.persistence.Exists(id) {
			continue
		}

		doc := document.New(id, nil, nil)
		if p.insert(doc, false) != doc {
			continue
		}

		p.log.Info("schedule created", "schedule", id)
		p.save(id)
		return doc, nil
	}

	return nil, ErrScheduleExists
}

// Lookup returns a loaded or persisted schedule without creating new ones
func (p *Pool) Lookup(ctx context.Context, id string) (*document.SharedDocument, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	if doc, ok := p.touch(id); ok {
		return doc, nil
	}
	if p.persistence != nil && p.persistence.Exists(id) {
		return p.GetOrLoad(ctx, id)
	}

	return nil, ErrScheduleNotFound
}

// List returns all loaded schedules ordered by ID
func (p *Pool) List() []*document.SharedDocument {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*document.SharedDocument, 0, len(p.entries))
	for _, e := range p.entries {
		result = append(result, e.doc)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID() < result[j].ID()
	})

	return result
}

// Stored returns the IDs of persisted schedules that are not loaded, ordered
func (p *Pool) Stored() ([]string, error) {
	if p.persistence == nil {
		return nil, nil
	}

	ids, err := p.persistence.ListAll()
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	stored := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := p.entries[id]; !ok {
			stored = append(stored, id)
		}
	}
	p.mu.RUnlock()

	sort.Strings(stored)
	return stored, nil
}

// Discard unloads doc and deletes it from persistence. It fails when a
// session still pins the schedule or a user has joined it.
func (p *Pool) Discard(doc *document.SharedDocument) error {
	p.mu.Lock()
	e, ok := p.entries[doc.ID()]
	if !ok || e.doc != doc {
		p.mu.Unlock()
		return ErrScheduleNotFound
	}
	if e.attached > 0 || doc.UserCount() > 0 {
		p.mu.Unlock()
		return ErrScheduleInUse
	}
	delete(p.entries, doc.ID())
	p.mu.Unlock()

	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	if p.persistence != nil {
		e.saveMu.Lock()
		e.discarded = true
		var err error
		if p.persistence.Exists(doc.ID()) {
			err = p.persistence.Delete(doc.ID())
		}
		e.saveMu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to delete schedule: %w", err)
		}
	}

	p.log.Debug("schedule discarded", "schedule", doc.ID())
	return nil
}

// Count returns the number of loaded schedules
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Attached returns how many sessions currently pin the schedule
func (p *Pool) Attached(id string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if e, ok := p.entries[id]; ok {
		return e.attached
	}
	return 0
}

// EvictIdle removes schedules nobody has pinned or touched within maxIdle.
// Evicted schedules are saved first when persistence is configured.
func (p *Pool) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	p.mu.Lock()
	var evicted []*entry
	for id, e := range p.entries {
		if e.attached > 0 || e.doc.UserCount() > 0 || !e.lastAccess.Before(cutoff) {
			continue
		}
		delete(p.entries, id)
		evicted = append(evicted, e)
	}
	p.mu.Unlock()

	for _, e := range evicted {
		if e.unsubscribe != nil {
			e.unsubscribe()
		}
		p.persist(e, e.doc.Snapshot())
		p.log.Debug("schedule evicted", "schedule", e.doc.ID())
	}

	return len(evicted)
}

// Save writes a loaded schedule to persistence
func (p *Pool) Save(id string) error {
	if p.persistence == nil {
		return nil
	}

	p.mu.RLock()
	e, ok := p.entries[id]
	p.mu.RUnlock()
	if !ok {
		return ErrScheduleNotFound
	}

	return p.persistence.Save(FromSnapshot(e.doc.Snapshot()))
}

// SaveAll writes every loaded schedule to persistence
func (p *Pool) SaveAll() error {
	if p.persistence == nil {
		return nil
	}

	errorCount := 0
	for _, doc := range p.List() {
		if err := p.persistence.Save(FromSnapshot(doc.Snapshot())); err != nil {
			p.log.Warn("failed to save schedule", "schedule", doc.ID(), "err", err)
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d schedules", errorCount)
	}

	return nil
}

// touch returns a loaded schedule and refreshes its access time
func (p *Pool) touch(id string) (*document.SharedDocument, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[id]
	if !ok {
		return nil, false
	}
	e.lastAccess = time.Now()
	return e.doc, true
}

// insert stores doc unless its ID is taken and returns the stored instance
func (p *Pool) insert(doc *document.SharedDocument, allowExisting bool) *document.SharedDocument {
	e := &entry{doc: doc, lastAccess: time.Now(), savedVersion: doc.Version()}
	if p.persistence != nil {
		e.unsubscribe = doc.Subscribe(func(s document.Snapshot) {
			p.persist(e, s)
		})
	}

	p.mu.Lock()
	existing, ok := p.entries[doc.ID()]
	if !ok {
		p.entries[doc.ID()] = e
	}
	p.mu.Unlock()

	if !ok {
		return doc
	}

	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	if allowExisting {
		return existing.doc
	}
	return nil
}

// load builds a document from persisted state or from the catalog seed
func (p *Pool) load(ctx context.Context, id string) (*document.SharedDocument, error) {
	if p.persistence != nil && p.persistence.Exists(id) {
		data, err := p.persistence.Load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted schedule: %w", err)
		}
		p.log.Debug("schedule loaded from storage", "schedule", id, "courses", len(data.Courses))
		return document.New(id, data.Courses, data.KnownNames), nil
	}

	var seed []document.SelectedCourse
	if p.source != nil && p.seedCount > 0 {
		courses, err := p.source.LoadCourses(ctx, p.seedFilter)
		if err != nil {
			return nil, fmt.Errorf("failed to load courses: %w", err)
		}
		if len(courses) > p.seedCount {
			courses = courses[:p.seedCount]
		}
		now := time.Now()
		seed = document.Select(courses)
		for i := range seed {
			seed[i].AddedAt = now
		}
	}

	p.log.Debug("schedule created from catalog", "schedule", id, "courses", len(seed))
	return document.New(id, seed, nil), nil
}

func (p *Pool) save(id string) {
	if err := p.Save(id); err != nil {
		p.log.Warn("failed to persist schedule", "schedule", id, "err", err)
	}
}

// persist writes s unless a newer version of the same schedule was written
func (p *Pool) persist(e *entry, s document.Snapshot) {
	if p.persistence == nil {
		return
	}

	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	if e.discarded || s.Version < e.savedVersion {
		return
	}
	if err := p.persistence.Save(FromSnapshot(s)); err != nil {
		p.log.Warn("failed to persist schedule", "schedule", s.ID, "version", s.Version, "err", err)
		return
	}
	e.savedVersion = s.Version
}

// ValidateID rejects IDs that are empty or unsafe as file names
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" || id == "." || id == ".." ||
		strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return ErrInvalidScheduleID
	}
	return nil
}
