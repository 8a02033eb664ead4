package document

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wricardo/course-scheduler/schedule/catalog"
)

var (
	ErrInvalidName           = errors.New("user name must not be empty")
	ErrNameTaken             = errors.New("user name already in use")
	ErrCourseAlreadySelected = errors.New("course already selected")
	ErrCourseNotSelected     = errors.New("course not selected")
)

// NameConflictError reports a claim for a name another user holds.
// It matches ErrNameTaken with errors.Is.
type NameConflictError struct {
	Name      string
	Available []string
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("the user name '%s' is already in use", e.Name)
}

func (e *NameConflictError) Is(target error) bool {
	return target == ErrNameTaken
}

// Member is a participant that can hold a name in a document
type Member interface {
	ConnectionID() string
}

// Listener receives a snapshot after each document change
type Listener func(Snapshot)

// SelectedCourse is a course added to a schedule
type SelectedCourse struct {
	Course  catalog.Course `json:"course"`
	AddedBy string         `json:"added_by,omitempty"`
	AddedAt time.Time      `json:"added_at"`
}

// Snapshot is an immutable copy of a document's shared state
type Snapshot struct {
	ID             string           `json:"id"`
	Version        uint64           `json:"version"`
	Courses        []SelectedCourse `json:"courses"`
	Users          []string         `json:"users"`
	AvailableNames []string         `json:"available_names"`
	CreatedAt      time.Time        `json:"created_at"`
	ModifiedAt     time.Time        `json:"modified_at"`
}

// ValidateName rejects empty and all-whitespace user names
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	return nil
}
