package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocationFile stores the active location id as the whole content of a
// text file. The counter reads it; the HTTP API writes it.
type LocationFile struct {
	path string
}

// NewLocationFile creates a location file handle; the file need not exist
func NewLocationFile(path string) *LocationFile {
	return &LocationFile{path: path}
}

// Path returns the file path
func (f *LocationFile) Path() string {
	return f.path
}

// Read returns the trimmed file content
func (f *LocationFile) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("location: failed to read %s: %w", f.path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Write replaces the file content with id. The content is written to a
// temporary file and renamed so readers never see a partial value.
func (f *LocationFile) Write(id string) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".location-*")
	if err != nil {
		return fmt.Errorf("location: failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(id); err != nil {
		tmp.Close()
		return fmt.Errorf("location: failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("location: failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("location: failed to replace %s: %w", f.path, err)
	}
	return nil
}

// EnsureDefault writes id when the file does not exist yet
func (f *LocationFile) EnsureDefault(id string) error {
	_, err := os.Stat(f.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("location: failed to stat %s: %w", f.path, err)
	}
	return f.Write(id)
}
