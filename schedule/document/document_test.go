package document

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/course-scheduler/schedule/catalog"
)

type testMember string

func (m testMember) ConnectionID() string { return string(m) }

func newMember(id string) *testMember {
	m := testMember(id)
	return &m
}

func testCourse(id string) catalog.Course {
	return catalog.Course{ID: id, Name: "Course " + id}
}

func TestNew(t *testing.T) {
	doc := New("s1", Select([]catalog.Course{testCourse("a"), testCourse("a"), testCourse("b")}), []string{"Alice", " ", "Bob"})

	snap := doc.Snapshot()
	assert.Equal(t, "s1", snap.ID)
	assert.Equal(t, uint64(0), snap.Version)
	assert.Len(t, snap.Courses, 2, "duplicate courses are dropped")
	assert.Empty(t, snap.Users)
	assert.Equal(t, []string{"Alice", "Bob"}, snap.AvailableNames, "blank names are never offered")
}

func TestSharedDocument_Claim(t *testing.T) {
	t.Run("claims a known name", func(t *testing.T) {
		doc := New("s1", nil, []string{"Alice", "Bob"})
		a := newMember("a")

		require.NoError(t, doc.Claim("Alice", a))
		assert.True(t, doc.HasUser("Alice"))
		assert.Equal(t, []string{"Bob"}, doc.AvailableNames())
		assert.Equal(t, uint64(1), doc.Version())
	})

	t.Run("claims a new name", func(t *testing.T) {
		doc := New("s1", nil, []string{"Alice"})
		require.NoError(t, doc.Claim("Carol", newMember("c")))
		assert.Equal(t, []string{"Carol"}, doc.Users())
		assert.Equal(t, []string{"Alice"}, doc.AvailableNames())
	})

	t.Run("rejects blank names", func(t *testing.T) {
		doc := New("s1", nil, nil)
		for _, name := range []string{"", "   ", "\t\n"} {
			err := doc.Claim(name, newMember("x"))
			assert.ErrorIs(t, err, ErrInvalidName)
		}
		assert.Empty(t, doc.Users())
		assert.Equal(t, uint64(0), doc.Version())
	})

	t.Run("conflict lists available names", func(t *testing.T) {
		doc := New("s1", nil, []string{"Alice", "Bob"})
		require.NoError(t, doc.Claim("Alice", newMember("a")))

		err := doc.Claim("Alice", newMember("b"))
		require.ErrorIs(t, err, ErrNameTaken)

		var conflict *NameConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, "Alice", conflict.Name)
		assert.Equal(t, []string{"Bob"}, conflict.Available)
		assert.Equal(t, []string{"Alice"}, doc.Users())
	})

	t.Run("names are case-sensitive", func(t *testing.T) {
		doc := New("s1", nil, nil)
		require.NoError(t, doc.Claim("alice", newMember("a")))
		require.NoError(t, doc.Claim("Alice", newMember("b")))
		assert.Equal(t, []string{"Alice", "alice"}, doc.Users())
	})
}

func TestSharedDocument_ConcurrentClaims(t *testing.T) {
	doc := New("s1", nil, []string{"Alice"})

	var wg sync.WaitGroup
	var succeeded, conflicted int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := doc.Claim("Alice", newMember(fmt.Sprintf("m%d", i)))
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case errors.Is(err, ErrNameTaken):
				atomic.AddInt32(&conflicted, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded)
	assert.Equal(t, int32(49), conflicted)
	assert.Equal(t, []string{"Alice"}, doc.Users())
	assert.Empty(t, doc.AvailableNames())
}

func TestSharedDocument_Release(t *testing.T) {
	doc := New("s1", nil, []string{"Alice"})
	a := newMember("a")
	b := newMember("b")
	require.NoError(t, doc.Claim("Alice", a))

	assert.False(t, doc.Release("Alice", b), "only the holder can release")
	assert.True(t, doc.HasUser("Alice"))

	assert.True(t, doc.Release("Alice", a))
	assert.False(t, doc.HasUser("Alice"))
	assert.Equal(t, []string{"Alice"}, doc.AvailableNames(), "released names become available again")

	assert.False(t, doc.Release("Alice", a), "second release is a no-op")
	require.NoError(t, doc.Claim("Alice", b))
}

func TestSharedDocument_Courses(t *testing.T) {
	doc := New("s1", nil, nil)

	require.NoError(t, doc.AddCourse(testCourse("c1"), "Alice"))
	assert.ErrorIs(t, doc.AddCourse(testCourse("c1"), "Bob"), ErrCourseAlreadySelected)
	require.NoError(t, doc.AddCourse(testCourse("c2"), "Bob"))

	snap := doc.Snapshot()
	require.Len(t, snap.Courses, 2)
	assert.Equal(t, "Alice", snap.Courses[0].AddedBy)
	assert.Equal(t, uint64(2), snap.Version)

	require.NoError(t, doc.RemoveCourse("c1"))
	assert.ErrorIs(t, doc.RemoveCourse("c1"), ErrCourseNotSelected)
	assert.Len(t, doc.Snapshot().Courses, 1)
}

func TestSharedDocument_Subscribe(t *testing.T) {
	doc := New("s1", nil, nil)

	var received []Snapshot
	cancel := doc.Subscribe(func(s Snapshot) {
		// Listeners run outside the document lock
		_ = doc.Users()
		received = append(received, s)
	})

	require.NoError(t, doc.Claim("Alice", newMember("a")))
	require.NoError(t, doc.AddCourse(testCourse("c1"), "Alice"))

	require.Len(t, received, 2)
	assert.Equal(t, uint64(1), received[0].Version)
	assert.Equal(t, []string{"Alice"}, received[0].Users)
	assert.Equal(t, uint64(2), received[1].Version)
	assert.Len(t, received[1].Courses, 1)

	cancel()
	cancel()
	require.NoError(t, doc.RemoveCourse("c1"))
	assert.Len(t, received, 2, "cancelled listeners receive nothing")
}

func TestSharedDocument_FailedMutationsDoNotNotify(t *testing.T) {
	doc := New("s1", nil, nil)
	require.NoError(t, doc.Claim("Alice", newMember("a")))

	calls := 0
	doc.Subscribe(func(Snapshot) { calls++ })

	_ = doc.Claim("Alice", newMember("b"))
	_ = doc.Claim("", newMember("b"))
	_ = doc.RemoveCourse("missing")

	assert.Zero(t, calls)
	assert.Equal(t, uint64(1), doc.Version())
}

func TestSharedDocument_KnownNames(t *testing.T) {
	doc := New("s1", nil, []string{"Bob"})
	require.NoError(t, doc.Claim("Alice", newMember("a")))
	assert.Equal(t, []string{"Alice", "Bob"}, doc.KnownNames())
}

func TestNewPersonalView(t *testing.T) {
	doc := New("s1", nil, nil)
	require.NoError(t, doc.Claim("Alice", newMember("a")))
	require.NoError(t, doc.Claim("Bob", newMember("b")))
	require.NoError(t, doc.AddCourse(testCourse("c1"), "Alice"))
	require.NoError(t, doc.AddCourse(testCourse("c2"), "Bob"))

	view := NewPersonalView("Alice", doc.Snapshot())

	assert.Equal(t, "s1", view.ScheduleID)
	assert.Equal(t, "Alice", view.User)
	assert.Equal(t, doc.Version(), view.Version)
	require.Len(t, view.Courses, 2)
	assert.True(t, view.Courses[0].Mine)
	assert.False(t, view.Courses[1].Mine)
	assert.Equal(t, "c2", view.Courses[1].ID)
	assert.Equal(t, []string{"Bob"}, view.CoEditors)
}
