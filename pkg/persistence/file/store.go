package file

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// store keeps one JSON document per record under root/<dir>/<id>.json.
type store[T any] struct {
	dir string
	mu  sync.RWMutex
}

func newStore[T any](root, dir string) *store[T] {
	return &store[T]{dir: path.Join(root, dir)}
}

func (s *store[T]) filePath(id string) string {
	return filepath.Clean(path.Join(s.dir, id+".json"))
}

func (s *store[T]) get(id string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(id)
}

func (s *store[T]) read(id string) (*T, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, nil
	}

	body, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}

	var record T

	err = json.Unmarshal(body, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}

	return &record, nil
}

func (s *store[T]) put(id string, record *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.MkdirAll(s.dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	return os.WriteFile(s.filePath(id), data, 0600)
}

func (s *store[T]) remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.filePath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}

	return nil
}

// all loads every record, in file name order.
func (s *store[T]) all() ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := fs.Glob(os.DirFS(s.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	records := make([]*T, 0, len(files))

	for _, file := range files {
		record, err := s.read(strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		if record != nil {
			records = append(records, record)
		}
	}

	return records, nil
}

// filter returns every record for which keep is true.
func (s *store[T]) filter(keep func(*T) bool) ([]*T, error) {
	records, err := s.all()
	if err != nil {
		return nil, err
	}

	kept := make([]*T, 0, len(records))

	for _, record := range records {
		if keep(record) {
			kept = append(kept, record)
		}
	}

	return kept, nil
}
