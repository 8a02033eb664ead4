package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/course-scheduler/schedule/catalog"
	"github.com/wricardo/course-scheduler/schedule/document"
	"github.com/wricardo/course-scheduler/schedule/pool"
	"github.com/wricardo/course-scheduler/schedule/service"
	"github.com/wricardo/course-scheduler/schedule/session"
)

// MockCatalog implements service.CourseCatalog and session.CourseLookup for testing
type MockCatalog struct {
	courses []catalog.Course

	LoadCoursesFunc func(ctx context.Context, filter string) ([]catalog.Course, error)
	ListFilesFunc   func() ([]*catalog.FileInfo, error)
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		courses: []catalog.Course{
			{ID: "ALG", Name: "Algorithms", Category: "Computer Science"},
			{ID: "DB", Name: "Databases", Category: "Computer Science"},
			{ID: "LIN", Name: "Linear Algebra", Category: "Mathematics"},
		},
	}
}

func (m *MockCatalog) LoadCourses(ctx context.Context, filter string) ([]catalog.Course, error) {
	if m.LoadCoursesFunc != nil {
		return m.LoadCoursesFunc(ctx, filter)
	}
	var result []catalog.Course
	for _, c := range m.courses {
		if filter == "" || strings.Contains(strings.ToLower(c.Name+" "+c.Category), strings.ToLower(filter)) {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockCatalog) Lookup(ctx context.Context, id string) (catalog.Course, error) {
	for _, c := range m.courses {
		if c.ID == id {
			return c, nil
		}
	}
	return catalog.Course{}, fmt.Errorf("%w: %s", catalog.ErrCourseNotFound, id)
}

func (m *MockCatalog) ListFiles() ([]*catalog.FileInfo, error) {
	if m.ListFilesFunc != nil {
		return m.ListFilesFunc()
	}
	return []*catalog.FileInfo{{CatalogID: "cs", Name: "Computer Science", CourseCount: len(m.courses)}}, nil
}

type fixture struct {
	svc      service.ScheduleService
	pool     *pool.Pool
	registry *session.Registry
	catalog  *MockCatalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := NewMockCatalog()
	p := pool.New(cat)
	r := session.NewRegistry(p, session.WithCourses(cat))
	return &fixture{
		svc:      service.NewScheduleService(r, p, cat),
		pool:     p,
		registry: r,
		catalog:  cat,
	}
}

func (f *fixture) connect(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.svc.Connect(context.Background(), id)
		require.NoError(t, err)
	}
}

func TestScheduleService_Connect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	info, err := f.svc.Connect(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "conn-1", info.ConnectionID)
	assert.Equal(t, "unjoined", info.State)

	_, err = f.svc.Connect(ctx, "conn-1")
	assert.Equal(t, service.CodeIllegalState, service.ErrorCode(err))

	clients, err := f.svc.ListClients(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 1)

	assert.True(t, f.svc.Disconnect(ctx, "conn-1"))
	assert.False(t, f.svc.Disconnect(ctx, "conn-1"))

	_, err = f.svc.GetClient(ctx, "conn-1")
	assert.Equal(t, service.CodeNotFound, service.ErrorCode(err))
}

func TestScheduleService_JoinProtocol(t *testing.T) {
	ctx := context.Background()

	t.Run("join and conflict", func(t *testing.T) {
		f := newFixture(t)
		f.connect(t, "a", "b")

		infoA, err := f.svc.BeginJoin(ctx, "a", "S1")
		require.NoError(t, err)
		assert.Equal(t, "S1", infoA.ID)
		assert.Equal(t, 1, infoA.Attached)

		infoB, err := f.svc.BeginJoin(ctx, "b", "S1")
		require.NoError(t, err)
		assert.Equal(t, 2, infoB.Attached)

		view, err := f.svc.CompleteJoin(ctx, "a", "Alice")
		require.NoError(t, err)
		assert.Equal(t, "Alice", view.User)

		_, err = f.svc.CompleteJoin(ctx, "b", "Alice")
		assert.Equal(t, service.CodeConflict, service.ErrorCode(err))
		assert.NotNil(t, service.AvailableNames(err))

		_, err = f.svc.CompleteJoin(ctx, "b", "Bob")
		require.NoError(t, err)

		client, err := f.svc.GetClient(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "Bob", client.Name)
		assert.Equal(t, "S1", client.ScheduleID)
		assert.Equal(t, "joined", client.State)

		schedule, err := f.svc.GetSchedule(ctx, "S1")
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice", "Bob"}, schedule.Users)
	})

	t.Run("protocol errors", func(t *testing.T) {
		f := newFixture(t)
		f.connect(t, "a")

		_, err := f.svc.CompleteJoin(ctx, "a", "Alice")
		assert.Equal(t, service.CodeIllegalState, service.ErrorCode(err))

		_, err = f.svc.BeginJoin(ctx, "a", "../etc")
		assert.Equal(t, service.CodeInvalidArgument, service.ErrorCode(err))

		_, err = f.svc.BeginJoin(ctx, "missing", "S1")
		assert.Equal(t, service.CodeNotFound, service.ErrorCode(err))

		_, err = f.svc.BeginJoin(ctx, "a", "S1")
		require.NoError(t, err)
		_, err = f.svc.CompleteJoin(ctx, "a", "  ")
		assert.Equal(t, service.CodeInvalidArgument, service.ErrorCode(err))
	})

	t.Run("create, edit and leave", func(t *testing.T) {
		f := newFixture(t)
		f.connect(t, "a")

		result, err := f.svc.CreateSchedule(ctx, "a", "Alice")
		require.NoError(t, err)
		require.NotNil(t, result.View)
		assert.Equal(t, []string{"Alice"}, result.Schedule.Users)
		assert.Equal(t, result.Schedule.ID, result.View.ScheduleID)

		view, err := f.svc.AddCourse(ctx, "a", "ALG")
		require.NoError(t, err)
		require.Len(t, view.Courses, 1)
		assert.True(t, view.Courses[0].Mine)

		_, err = f.svc.AddCourse(ctx, "a", "ALG")
		assert.Equal(t, service.CodeConflict, service.ErrorCode(err))

		_, err = f.svc.AddCourse(ctx, "a", "NOPE")
		assert.Equal(t, service.CodeInvalidArgument, service.ErrorCode(err))

		_, err = f.svc.AddCourse(ctx, "a", "")
		assert.Equal(t, service.CodeInvalidArgument, service.ErrorCode(err))

		view, err = f.svc.RemoveCourse(ctx, "a", "ALG")
		require.NoError(t, err)
		assert.Empty(t, view.Courses)

		_, err = f.svc.RemoveCourse(ctx, "a", "ALG")
		assert.Equal(t, service.CodeNotFound, service.ErrorCode(err))

		require.NoError(t, f.svc.Leave(ctx, "a"))
		require.NoError(t, f.svc.Leave(ctx, "a"))

		schedule, err := f.svc.GetSchedule(ctx, result.Schedule.ID)
		require.NoError(t, err)
		assert.Empty(t, schedule.Users)
		assert.Equal(t, []string{"Alice"}, schedule.AvailableNames)
		assert.Equal(t, 0, schedule.Attached)
	})
}

func TestScheduleService_Schedules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.connect(t, "a", "b")

	_, err := f.svc.BeginJoin(ctx, "a", "S2")
	require.NoError(t, err)
	_, err = f.svc.BeginJoin(ctx, "b", "S1")
	require.NoError(t, err)

	list, err := f.svc.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "S1", list[0].ID)
	assert.Equal(t, "S2", list[1].ID)
	assert.True(t, list[0].Loaded)

	_, err = f.svc.GetSchedule(ctx, "unknown")
	assert.Equal(t, service.CodeNotFound, service.ErrorCode(err))
}

func TestScheduleService_ListSchedules_Stored(t *testing.T) {
	ctx := context.Background()
	store, err := pool.NewFilePersistence(t.TempDir())
	require.NoError(t, err)
	cat := NewMockCatalog()

	previous := pool.New(cat, pool.WithPersistence(store))
	_, err = previous.GetOrLoad(ctx, "S1")
	require.NoError(t, err)
	require.NoError(t, previous.SaveAll())

	p := pool.New(cat, pool.WithPersistence(store))
	r := session.NewRegistry(p, session.WithCourses(cat))
	svc := service.NewScheduleService(r, p, cat)

	_, err = svc.Connect(ctx, "a")
	require.NoError(t, err)
	_, err = svc.BeginJoin(ctx, "a", "S2")
	require.NoError(t, err)

	list, err := svc.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "S2", list[0].ID)
	assert.True(t, list[0].Loaded)
	assert.Equal(t, "S1", list[1].ID)
	assert.False(t, list[1].Loaded)

	schedule, err := svc.GetSchedule(ctx, "S1")
	require.NoError(t, err)
	assert.True(t, schedule.Loaded)
}

func TestScheduleService_SearchCourses(t *testing.T) {
	ctx := context.Background()

	t.Run("filters and truncates", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.svc.SearchCourses(ctx, "computer", 0)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
		assert.False(t, result.Truncated)

		result, err = f.svc.SearchCourses(ctx, "", 1)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Total)
		assert.Len(t, result.Courses, 1)
		assert.True(t, result.Truncated)
	})

	t.Run("negative limit", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.SearchCourses(ctx, "", -1)
		assert.Equal(t, service.CodeInvalidArgument, service.ErrorCode(err))
	})

	t.Run("catalog failure", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.LoadCoursesFunc = func(ctx context.Context, filter string) ([]catalog.Course, error) {
			return nil, errors.New("disk gone")
		}

		_, err := f.svc.SearchCourses(ctx, "x", 0)
		assert.Equal(t, service.CodeInternal, service.ErrorCode(err))
	})

	t.Run("list catalogs", func(t *testing.T) {
		f := newFixture(t)

		infos, err := f.svc.ListCatalogs(ctx)
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, "cs", infos[0].CatalogID)

		f.catalog.ListFilesFunc = func() ([]*catalog.FileInfo, error) { return nil, nil }
		infos, err = f.svc.ListCatalogs(ctx)
		require.NoError(t, err)
		assert.NotNil(t, infos)
	})
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   service.Code
		status int
	}{
		{"nil", nil, "", http.StatusOK},
		{"illegal state", session.ErrIllegalState, service.CodeIllegalState, http.StatusConflict},
		{"client exists", session.ErrClientExists, service.CodeIllegalState, http.StatusConflict},
		{"name conflict", &document.NameConflictError{Name: "Alice"}, service.CodeConflict, http.StatusConflict},
		{"invalid name", fmt.Errorf("join: %w", document.ErrInvalidName), service.CodeInvalidArgument, http.StatusBadRequest},
		{"client not found", session.ErrClientNotFound, service.CodeNotFound, http.StatusNotFound},
		{"schedule not found", pool.ErrScheduleNotFound, service.CodeNotFound, http.StatusNotFound},
		{"canceled", context.Canceled, service.CodeCanceled, http.StatusRequestTimeout},
		{"other", errors.New("boom"), service.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := service.ErrorCode(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, service.HTTPStatus(code))
		})
	}
}

func TestAvailableNames(t *testing.T) {
	err := fmt.Errorf("join: %w", &document.NameConflictError{Name: "Alice", Available: []string{"Carol"}})
	assert.Equal(t, []string{"Carol"}, service.AvailableNames(err))
	assert.Nil(t, service.AvailableNames(errors.New("other")))
}
