package document

import "github.com/wricardo/course-scheduler/schedule/catalog"

// Schedule is the ordered set of selected courses of a document.
// It is not safe for concurrent use; SharedDocument serializes access.
type Schedule struct {
	courses []SelectedCourse
}

// NewSchedule creates a schedule from the given selection, dropping duplicates
func NewSchedule(courses []SelectedCourse) *Schedule {
	s := &Schedule{}
	for _, c := range courses {
		if !s.Contains(c.Course.ID) {
			s.courses = append(s.courses, c)
		}
	}
	return s
}

// Add appends a course unless it is already selected
func (s *Schedule) Add(course SelectedCourse) error {
	if s.Contains(course.Course.ID) {
		return ErrCourseAlreadySelected
	}
	s.courses = append(s.courses, course)
	return nil
}

// Remove drops the course with the given ID
func (s *Schedule) Remove(courseID string) error {
	for i, c := range s.courses {
		if c.Course.ID == courseID {
			s.courses = append(s.courses[:i], s.courses[i+1:]...)
			return nil
		}
	}
	return ErrCourseNotSelected
}

// Contains reports whether the course is selected
func (s *Schedule) Contains(courseID string) bool {
	for _, c := range s.courses {
		if c.Course.ID == courseID {
			return true
		}
	}
	return false
}

// Courses returns a copy of the selection
func (s *Schedule) Courses() []SelectedCourse {
	out := make([]SelectedCourse, len(s.courses))
	copy(out, s.courses)
	return out
}

// Len returns the number of selected courses
func (s *Schedule) Len() int {
	return len(s.courses)
}

// Select wraps catalog courses as a selection without an author
func Select(courses []catalog.Course) []SelectedCourse {
	out := make([]SelectedCourse, len(courses))
	for i, c := range courses {
		out[i] = SelectedCourse{Course: c}
	}
	return out
}
