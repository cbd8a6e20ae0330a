// Package session keeps the last signed-in identity on disk so CLI
// invocations can reuse it.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"series-tracker/models"
	"series-tracker/utils"
)

// Store holds at most one identity
type Store interface {
	Get() (models.Identity, bool, error)
	Set(models.Identity) error
	Clear() error
}

// FileStore is a Store backed by a JSON file readable only by its owner
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore writing to path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the session file location
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the saved identity. ok is false when nobody is signed in.
func (s *FileStore) Get() (models.Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var identity models.Identity
	if err := utils.ReadJSON(s.path, &identity); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Identity{}, false, nil
		}
		return models.Identity{}, false, fmt.Errorf("read session: %w", err)
	}
	if identity.Token == "" {
		return models.Identity{}, false, nil
	}
	return identity, true, nil
}

// Set replaces the saved identity
func (s *FileStore) Set(identity models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := utils.WriteJSON(s.path, identity, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear forgets the saved identity
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
