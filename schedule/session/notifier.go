package session

import "github.com/wricardo/course-scheduler/schedule/document"

// Notifier pushes schedule changes to connected clients. Implementations
// must not block and must not call back into the session.
type Notifier interface {
	// ScheduleChanged is called after BeginJoin and on every change of the
	// joined schedule
	ScheduleChanged(connectionID string, snap document.Snapshot)

	// PersonalViewChanged is called after CompleteJoin and whenever the
	// personal view is rebuilt
	PersonalViewChanged(connectionID string, view *document.PersonalView)
}

type nopNotifier struct{}

func (nopNotifier) ScheduleChanged(string, document.Snapshot) {}
func (nopNotifier) PersonalViewChanged(string, *document.PersonalView) {}
