// Package storage keeps files picked in the browser on disk until they are
// uploaded to the API or discarded.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown staged file ids.
var ErrNotFound = errors.New("staged file not found")

// StagedFile describes a file waiting on disk.
type StagedFile struct {
	ID       string
	Name     string
	Size     int64
	StagedAt time.Time
}

// Store defines the interface for staged file storage.
type Store interface {
	Save(name string, r io.Reader) (*StagedFile, error)
	Get(id string) (*StagedFile, error)
	Open(id string) (io.ReadCloser, error)
	List() []*StagedFile
	Delete(id string) error
	CleanupOlderThan(maxAge time.Duration) int
}

// LocalStore implements Store using the local filesystem.
type LocalStore struct {
	mu       sync.RWMutex
	stageDir string
	files    map[string]*StagedFile
}

// NewLocalStore creates a LocalStore rooted at stageDir. Leftovers from a
// previous run are removed.
func NewLocalStore(stageDir string) (*LocalStore, error) {
	if err := os.RemoveAll(stageDir); err != nil {
		return nil, fmt.Errorf("clearing staging directory: %w", err)
	}
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	return &LocalStore{
		stageDir: stageDir,
		files:    make(map[string]*StagedFile),
	}, nil
}

// Save writes r to a new staged file.
func (s *LocalStore) Save(name string, r io.Reader) (*StagedFile, error) {
	id := uuid.New().String()
	path := filepath.Join(s.stageDir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &StagedFile{
		ID:       id,
		Name:     name,
		Size:     size,
		StagedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	return info, nil
}

// Get retrieves staged file metadata by ID.
func (s *LocalStore) Get(id string) (*StagedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return info, nil
}

// Open returns the contents of a staged file.
func (s *LocalStore) Open(id string) (io.ReadCloser, error) {
	s.mu.RLock()
	_, ok := s.files[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	f, err := os.Open(filepath.Join(s.stageDir, id))
	if err != nil {
		return nil, fmt.Errorf("opening staged file: %w", err)
	}
	return f, nil
}

// List returns staged files, oldest first.
func (s *LocalStore) List() []*StagedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*StagedFile, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, info)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].StagedAt.Before(list[j].StagedAt)
	})
	return list
}

// Delete removes a staged file. Deleting an unknown id is not an error.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return nil
	}
	if err := os.Remove(filepath.Join(s.stageDir, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}
	delete(s.files, id)
	return nil
}

// CleanupOlderThan deletes files staged more than maxAge ago and returns how
// many were removed.
func (s *LocalStore) CleanupOlderThan(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	var stale []string
	s.mu.RLock()
	for id, info := range s.files {
		if info.StagedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range stale {
		if err := s.Delete(id); err == nil {
			removed++
		}
	}
	return removed
}
