package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// DirectorySource yields the encoded images of a directory in name order,
// one file per frame.
type DirectorySource struct {
	dir string

	mu    sync.Mutex
	files []string
	pos   int
}

// NewDirectorySource lists the frames in dir
func NewDirectorySource(dir string) (*DirectorySource, error) {
	s := &DirectorySource{dir: dir}
	if err := s.scan(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DirectorySource) scan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("directory: failed to list frames: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(files)

	s.files = files
	s.pos = 0
	return nil
}

// Next reads the next image file
func (s *DirectorySource) Next(ctx context.Context) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.files) {
		return domain.Frame{}, domain.ErrEndOfStream
	}

	path := s.files[s.pos]
	index := s.pos
	s.pos++

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("directory: failed to read frame %s: %w", path, err)
	}
	return domain.Frame{Index: index, Image: data}, nil
}

// Restart rescans the directory and rewinds to the first frame
func (s *DirectorySource) Restart(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scan()
}
