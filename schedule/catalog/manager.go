package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	ErrCatalogNotFound = errors.New("catalog not found")
	ErrCourseNotFound  = errors.New("course not found")
	ErrInvalidCatalog  = errors.New("invalid catalog")
)

// Manager loads course catalogs from a directory and caches them
type Manager struct {
	dir   string
	files map[string]*File
	mu    sync.RWMutex
}

// NewManager creates a new catalog manager for the given directory
func NewManager(dir string) (*Manager, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog directory does not exist: %s", dir)
	}

	return &Manager{
		dir:   dir,
		files: make(map[string]*File),
	}, nil
}

// LoadFile loads a catalog file by name (with or without .json)
func (m *Manager) LoadFile(name string) (*File, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if file, exists := m.files[name]; exists {
		m.mu.RUnlock()
		return file, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if file, exists := m.files[name]; exists {
		return file, nil
	}

	data, err := os.ReadFile(filepath.Join(m.dir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCatalogNotFound
		}
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if err := Validate(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	m.files[name] = &file
	return &file, nil
}

// ListFiles returns information about all loadable catalog files
func (m *Manager) ListFiles() ([]*FileInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	var infos []*FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		file, err := m.LoadFile(id)
		if err != nil {
			// Skip invalid catalogs
			continue
		}

		infos = append(infos, &FileInfo{
			Filename:    entry.Name(),
			CatalogID:   id,
			Name:        file.Name,
			Description: file.Description,
			CourseCount: len(file.Courses),
		})
	}

	return infos, nil
}

// LoadCourses returns every course matching filter, ordered by ID.
// The filter is matched case-insensitively against name, short name and
// category; an empty filter matches everything. When two files define the
// same course ID the first file in directory order wins.
func (m *Manager) LoadCourses(ctx context.Context, filter string) ([]Course, error) {
	infos, err := m.ListFiles()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(filter))
	seen := make(map[string]bool)
	result := make([]Course, 0)

	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		file, err := m.LoadFile(info.CatalogID)
		if err != nil {
			continue
		}

		for _, course := range file.Courses {
			if seen[course.ID] {
				continue
			}
			seen[course.ID] = true

			if needle == "" || matches(course, needle) {
				result = append(result, course)
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Lookup returns the course with the given ID
func (m *Manager) Lookup(ctx context.Context, id string) (Course, error) {
	courses, err := m.LoadCourses(ctx, "")
	if err != nil {
		return Course{}, err
	}

	for _, course := range courses {
		if course.ID == id {
			return course, nil
		}
	}

	return Course{}, fmt.Errorf("%w: %s", ErrCourseNotFound, id)
}

// RefreshCache drops all cached catalog files
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make(map[string]*File)
}

// Validate checks that a catalog has a name and unique, non-empty course IDs
func Validate(file *File) error {
	if file == nil {
		return errors.New("catalog is nil")
	}
	if strings.TrimSpace(file.Name) == "" {
		return errors.New("catalog name is required")
	}

	ids := make(map[string]bool, len(file.Courses))
	for i, course := range file.Courses {
		if strings.TrimSpace(course.ID) == "" {
			return fmt.Errorf("course %d has no id", i)
		}
		if strings.TrimSpace(course.Name) == "" {
			return fmt.Errorf("course %s has no name", course.ID)
		}
		if ids[course.ID] {
			return fmt.Errorf("duplicate course id %s", course.ID)
		}
		ids[course.ID] = true
	}

	return nil
}

func matches(course Course, needle string) bool {
	return strings.Contains(strings.ToLower(course.Name), needle) ||
		strings.Contains(strings.ToLower(course.ShortName), needle) ||
		strings.Contains(strings.ToLower(course.Category), needle)
}
