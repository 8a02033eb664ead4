package pool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilePersistence implements Persistence using file system storage
type FilePersistence struct {
	dir string
}

// NewFilePersistence creates a new file-based schedule persistence layer
func NewFilePersistence(dir string) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create schedules directory: %w", err)
	}

	return &FilePersistence{dir: dir}, nil
}

// Save persists a schedule to a JSON file
func (fp *FilePersistence) Save(data *PersistedSchedule) error {
	if data == nil {
		return fmt.Errorf("schedule cannot be nil")
	}
	if err := ValidateID(data.ID); err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schedule data: %w", err)
	}

	// Write through a temp file so readers never see a partial schedule
	tmp, err := os.CreateTemp(fp.dir, ".schedule-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write schedule file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close schedule file: %w", err)
	}

	if err := os.Rename(tmp.Name(), fp.getFilePath(data.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write schedule file: %w", err)
	}

	return nil
}

// Load retrieves a schedule from a JSON file
func (fp *FilePersistence) Load(id string) (*PersistedSchedule, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	jsonData, err := os.ReadFile(fp.getFilePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}

	var data PersistedSchedule
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule data: %w", err)
	}

	return &data, nil
}

// Delete removes a schedule file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrScheduleNotFound
	}

	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove schedule file: %w", err)
	}

	return nil
}

// ListAll returns all persisted schedule IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedules directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}

	return ids, nil
}

// Exists checks if a schedule file exists
func (fp *FilePersistence) Exists(id string) bool {
	if ValidateID(id) != nil {
		return false
	}
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.dir, fmt.Sprintf("%s.json", id))
}
