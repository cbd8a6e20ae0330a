package utils

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// EnsureParentDir creates the directory that will contain path
func EnsureParentDir(path string) error {
	return EnsureDir(filepath.Dir(path))
}

// ReadJSON reads a JSON file and unmarshals it into the provided value
func ReadJSON(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(v)
}

// WriteJSON writes data to a JSON file. The file is replaced atomically
// (temp file, fsync, rename) so readers never see a partial document.
func WriteJSON(path string, v any, perm os.FileMode) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(perm))
	if err != nil {
		return err
	}
	defer func() { _ = pending.Cleanup() }()

	encoder := json.NewEncoder(pending)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}
