package document

import (
	"time"

	"github.com/wricardo/course-scheduler/schedule/catalog"
)

// ViewCourse is a selected course as seen by one user
type ViewCourse struct {
	catalog.Course
	AddedBy string    `json:"added_by,omitempty"`
	AddedAt time.Time `json:"added_at"`
	Mine    bool      `json:"mine"`
}

// PersonalView is the per-client view of a shared schedule
type PersonalView struct {
	ScheduleID string       `json:"schedule_id"`
	User       string       `json:"user"`
	Version    uint64       `json:"version"`
	Courses    []ViewCourse `json:"courses"`
	CoEditors  []string     `json:"co_editors"`
}

// NewPersonalView derives the view of user from a document snapshot
func NewPersonalView(user string, snap Snapshot) *PersonalView {
	view := &PersonalView{
		ScheduleID: snap.ID,
		User:       user,
		Version:    snap.Version,
		Courses:    make([]ViewCourse, 0, len(snap.Courses)),
		CoEditors:  make([]string, 0, len(snap.Users)),
	}

	for _, c := range snap.Courses {
		view.Courses = append(view.Courses, ViewCourse{
			Course:  c.Course,
			AddedBy: c.AddedBy,
			AddedAt: c.AddedAt,
			Mine:    c.AddedBy == user,
		})
	}

	for _, u := range snap.Users {
		if u != user {
			view.CoEditors = append(view.CoEditors, u)
		}
	}

	return view
}
