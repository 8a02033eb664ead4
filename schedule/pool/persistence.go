package pool

import (
	"time"

	"github.com/wricardo/course-scheduler/schedule/document"
)

// Persistence defines the interface for persisting schedules
type Persistence interface {
	// Save persists a schedule to storage
	Save(data *PersistedSchedule) error

	// Load retrieves a schedule from storage by ID
	Load(id string) (*PersistedSchedule, error)

	// Delete removes a schedule from storage
	Delete(id string) error

	// ListAll returns all persisted schedule IDs
	ListAll() ([]string, error)

	// Exists checks if a schedule exists in storage
	Exists(id string) bool
}

// PersistedSchedule represents the JSON structure for persisted schedules
type PersistedSchedule struct {
	ID         string                    `json:"id"`
	Version    uint64                    `json:"version"`
	Courses    []document.SelectedCourse `json:"courses"`
	KnownNames []string                  `json:"known_names"`
	CreatedAt  time.Time                 `json:"created_at"`
	SavedAt    time.Time                 `json:"saved_at"`
}

// FromSnapshot converts a document snapshot into its persisted form.
// Joined and available names are both stored as known names.
func FromSnapshot(s document.Snapshot) *PersistedSchedule {
	names := make([]string, 0, len(s.Users)+len(s.AvailableNames))
	names = append(names, s.Users...)
	names = append(names, s.AvailableNames...)

	return &PersistedSchedule{
		ID:         s.ID,
		Version:    s.Version,
		Courses:    s.Courses,
		KnownNames: names,
		CreatedAt:  s.CreatedAt,
		SavedAt:    time.Now(),
	}
}
