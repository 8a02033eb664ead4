package document

import (
	"sort"
	"sync"
	"time"

	"github.com/wricardo/course-scheduler/schedule/catalog"
)

// SharedDocument is a schedule shared by every client that joined it
type SharedDocument struct {
	id        string
	schedule  *Schedule
	users     map[string]Member
	available map[string]struct{}
	version   uint64

	listeners    map[uint64]Listener
	nextListener uint64

	createdAt  time.Time
	modifiedAt time.Time

	mu sync.Mutex
}

// New creates a document with an initial selection and known user names
func New(id string, courses []SelectedCourse, knownNames []string) *SharedDocument {
	now := time.Now()
	d := &SharedDocument{
		id:         id,
		schedule:   NewSchedule(courses),
		users:      make(map[string]Member),
		available:  make(map[string]struct{}),
		listeners:  make(map[uint64]Listener),
		createdAt:  now,
		modifiedAt: now,
	}
	for _, name := range knownNames {
		if ValidateName(name) == nil {
			d.available[name] = struct{}{}
		}
	}
	return d
}

// ID returns the document identifier
func (d *SharedDocument) ID() string {
	return d.id
}

// Subscribe registers a listener for changes and returns its cancel func
func (d *SharedDocument) Subscribe(l Listener) func() {
	d.mu.Lock()
	id := d.nextListener
	d.nextListener++
	d.listeners[id] = l
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners, id)
			d.mu.Unlock()
		})
	}
}

// Claim binds name to member. The name is removed from the available
// names; the claim fails when another member holds the same name.
func (d *SharedDocument) Claim(name string, m Member) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	d.mu.Lock()
	if _, taken := d.users[name]; taken {
		err := &NameConflictError{Name: name, Available: d.availableLocked()}
		d.mu.Unlock()
		return err
	}

	delete(d.available, name)
	d.users[name] = m
	snap, listeners := d.changedLocked()
	d.mu.Unlock()

	notify(listeners, snap)
	return nil
}

// Release removes member from the users and returns its name to the
// available names. It is a no-op unless member currently holds name.
func (d *SharedDocument) Release(name string, m Member) bool {
	d.mu.Lock()
	holder, ok := d.users[name]
	if !ok || holder != m {
		d.mu.Unlock()
		return false
	}

	delete(d.users, name)
	d.available[name] = struct{}{}
	snap, listeners := d.changedLocked()
	d.mu.Unlock()

	notify(listeners, snap)
	return true
}

// AddCourse selects a course on behalf of user
func (d *SharedDocument) AddCourse(course catalog.Course, user string) error {
	d.mu.Lock()
	err := d.schedule.Add(SelectedCourse{Course: course, AddedBy: user, AddedAt: time.Now()})
	if err != nil {
		d.mu.Unlock()
		return err
	}
	snap, listeners := d.changedLocked()
	d.mu.Unlock()

	notify(listeners, snap)
	return nil
}

// RemoveCourse deselects a course
func (d *SharedDocument) RemoveCourse(courseID string) error {
	d.mu.Lock()
	if err := d.schedule.Remove(courseID); err != nil {
		d.mu.Unlock()
		return err
	}
	snap, listeners := d.changedLocked()
	d.mu.Unlock()

	notify(listeners, snap)
	return nil
}

// Snapshot returns a copy of the current shared state
func (d *SharedDocument) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// Users returns the names of the joined users, sorted
func (d *SharedDocument) Users() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.usersLocked()
}

// AvailableNames returns the known names nobody holds, sorted
func (d *SharedDocument) AvailableNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.availableLocked()
}

// KnownNames returns every name ever offered or claimed, sorted
func (d *SharedDocument) KnownNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := append(d.usersLocked(), d.availableLocked()...)
	sort.Strings(names)
	return names
}

// HasUser reports whether a joined user holds name
func (d *SharedDocument) HasUser(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.users[name]
	return ok
}

// UserCount returns the number of joined users
func (d *SharedDocument) UserCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users)
}

// Version returns the current document version
func (d *SharedDocument) Version() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

func (d *SharedDocument) changedLocked() (Snapshot, []Listener) {
	d.version++
	d.modifiedAt = time.Now()

	listeners := make([]Listener, 0, len(d.listeners))
	for _, l := range d.listeners {
		listeners = append(listeners, l)
	}
	return d.snapshotLocked(), listeners
}

func (d *SharedDocument) snapshotLocked() Snapshot {
	return Snapshot{
		ID:             d.id,
		Version:        d.version,
		Courses:        d.schedule.Courses(),
		Users:          d.usersLocked(),
		AvailableNames: d.availableLocked(),
		CreatedAt:      d.createdAt,
		ModifiedAt:     d.modifiedAt,
	}
}

func (d *SharedDocument) usersLocked() []string {
	names := make([]string, 0, len(d.users))
	for name := range d.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *SharedDocument) availableLocked() []string {
	names := make([]string, 0, len(d.available))
	for name := range d.available {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func notify(listeners []Listener, snap Snapshot) {
	for _, l := range listeners {
		l(snap)
	}
}
