package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists preferences as a single JSON document on disk.
// Intended for the local CLI and single-instance deployments.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	values map[string]map[Key]string
}

// NewFileStore opens the store at path. A missing or unreadable file starts
// the store empty; the file is created on first write.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStore{
		path:   path,
		logger: logger,
		values: make(map[string]map[Key]string),
	}
	s.loadFromDisk()
	return s
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, owner string, key Key) (string, bool, error) {
	if owner == "" {
		return "", false, ErrEmptyOwner
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[owner][key]
	return v, ok, nil
}

// Set implements Store. The in-memory view is only updated once the new
// document has been written, so a failed write leaves the previous state.
func (s *FileStore) Set(ctx context.Context, owner string, key Key, value string) error {
	if owner == "" {
		return ErrEmptyOwner
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]map[Key]string, len(s.values)+1)
	for o, m := range s.values {
		next[o] = maps.Clone(m)
	}
	if next[owner] == nil {
		next[owner] = make(map[Key]string)
	}
	next[owner][key] = value

	if err := s.saveToDisk(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *FileStore) loadFromDisk() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read preferences file, starting empty", "path", s.path, "error", err)
		}
		return
	}

	var values map[string]map[Key]string
	if err := json.Unmarshal(data, &values); err != nil {
		s.logger.Warn("preferences file is not valid JSON, starting empty", "path", s.path, "error", err)
		return
	}
	if values != nil {
		s.values = values
	}
}

// saveToDisk writes to a temp file and renames it over the target.
func (s *FileStore) saveToDisk(values map[string]map[Key]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create preferences dir: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close preferences: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace preferences file: %w", err)
	}
	return nil
}
