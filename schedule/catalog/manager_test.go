package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func createTestCatalog() *File {
	return &File{
		Name:        "Test Catalog",
		Description: "Test courses",
		Courses: []Course{
			{ID: "C3", Name: "Grundlagen der Programmierung", ShortName: "GP", Category: "Grundlagen"},
			{ID: "C1", Name: "Datenbanken", ShortName: "DB", Category: "Informatik"},
			{ID: "C2", Name: "Grundlagen Technischer Informatik", ShortName: "GTI", Category: "Grundlagen"},
		},
	}
}

func writeCatalog(t *testing.T, dir, name string, file *File) {
	t.Helper()
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal catalog: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
}

func setupManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	writeCatalog(t, dir, "winter", createTestCatalog())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return manager
}

func TestNewManager(t *testing.T) {
	t.Run("existing directory", func(t *testing.T) {
		if _, err := NewManager(t.TempDir()); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/catalog"); err == nil {
			t.Error("Expected error for missing directory")
		}
	})
}

func TestManager_LoadFile(t *testing.T) {
	manager := setupManager(t)

	t.Run("load by name", func(t *testing.T) {
		file, err := manager.LoadFile("winter")
		if err != nil {
			t.Fatalf("Failed to load catalog: %v", err)
		}
		if len(file.Courses) != 3 {
			t.Errorf("Expected 3 courses, got %d", len(file.Courses))
		}
	})

	t.Run("load with extension", func(t *testing.T) {
		if _, err := manager.LoadFile("winter.json"); err != nil {
			t.Fatalf("Failed to load catalog with extension: %v", err)
		}
	})

	t.Run("missing catalog", func(t *testing.T) {
		_, err := manager.LoadFile("summer")
		if !errors.Is(err, ErrCatalogNotFound) {
			t.Errorf("Expected ErrCatalogNotFound, got %v", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(manager.dir, "broken.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := manager.LoadFile("broken"); err == nil {
			t.Error("Expected error for invalid JSON")
		}
	})

	t.Run("duplicate course ids", func(t *testing.T) {
		path := filepath.Join(manager.dir, "dupes.json")
		data := `{"name":"dupes","courses":[{"id":"X","name":"a"},{"id":"X","name":"b"}]}`
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := manager.LoadFile("dupes")
		if !errors.Is(err, ErrInvalidCatalog) {
			t.Errorf("Expected ErrInvalidCatalog, got %v", err)
		}
	})
}

func TestManager_LoadCourses(t *testing.T) {
	manager := setupManager(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		filter  string
		wantIDs []string
	}{
		{"empty filter returns all ordered by id", "", []string{"C1", "C2", "C3"}},
		{"category match", "Grundlagen", []string{"C2", "C3"}},
		{"case-insensitive", "grundlagen", []string{"C2", "C3"}},
		{"short name match", "db", []string{"C1"}},
		{"no match", "Chemie", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			courses, err := manager.LoadCourses(ctx, tt.filter)
			if err != nil {
				t.Fatalf("LoadCourses failed: %v", err)
			}
			if len(courses) != len(tt.wantIDs) {
				t.Fatalf("Expected %d courses, got %d", len(tt.wantIDs), len(courses))
			}
			for i, id := range tt.wantIDs {
				if courses[i].ID != id {
					t.Errorf("Course %d: expected %s, got %s", i, id, courses[i].ID)
				}
			}
		})
	}

	t.Run("skips invalid catalogs", func(t *testing.T) {
		path := filepath.Join(manager.dir, "zz-broken.json")
		if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
			t.Fatal(err)
		}
		courses, err := manager.LoadCourses(ctx, "")
		if err != nil {
			t.Fatalf("LoadCourses failed: %v", err)
		}
		if len(courses) != 3 {
			t.Errorf("Expected 3 courses, got %d", len(courses))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := manager.LoadCourses(cancelled, ""); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestManager_Lookup(t *testing.T) {
	manager := setupManager(t)

	course, err := manager.Lookup(context.Background(), "C2")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if course.ShortName != "GTI" {
		t.Errorf("Expected GTI, got %s", course.ShortName)
	}

	_, err = manager.Lookup(context.Background(), "missing")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("Expected ErrCourseNotFound, got %v", err)
	}
}

func TestManager_ListFiles(t *testing.T) {
	manager := setupManager(t)

	infos, err := manager.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Expected 1 catalog, got %d", len(infos))
	}
	if infos[0].CatalogID != "winter" || infos[0].CourseCount != 3 {
		t.Errorf("Unexpected catalog info: %+v", infos[0])
	}
}

func TestManager_RefreshCache(t *testing.T) {
	manager := setupManager(t)

	before, err := manager.LoadFile("winter")
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}

	updated := createTestCatalog()
	updated.Courses = append(updated.Courses, Course{ID: "C4", Name: "Betriebssysteme", ShortName: "BS", Category: "Informatik"})
	writeCatalog(t, manager.dir, "winter", updated)

	cached, _ := manager.LoadFile("winter")
	if cached != before || len(cached.Courses) != 3 {
		t.Fatalf("Expected cached catalog until refresh, got %d courses", len(cached.Courses))
	}

	manager.RefreshCache()

	after, err := manager.LoadFile("winter")
	if err != nil {
		t.Fatalf("Failed to reload catalog: %v", err)
	}
	if len(after.Courses) != 4 {
		t.Errorf("Expected 4 courses after refresh, got %d", len(after.Courses))
	}
}

func TestManager_ConcurrentLoad(t *testing.T) {
	manager := setupManager(t)

	var wg sync.WaitGroup
	files := make([]*File, 20)
	for i := range files {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			files[i], _ = manager.LoadFile("winter")
		}(i)
	}
	wg.Wait()

	for i, f := range files {
		if f != files[0] {
			t.Errorf("Load %d returned a different cached instance", i)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		file    *File
		wantErr bool
	}{
		{"valid", createTestCatalog(), false},
		{"nil", nil, true},
		{"missing name", &File{Courses: []Course{{ID: "a", Name: "a"}}}, true},
		{"blank id", &File{Name: "x", Courses: []Course{{ID: " ", Name: "a"}}}, true},
		{"missing course name", &File{Name: "x", Courses: []Course{{ID: "a"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
