// Package source provides frame sources and the file-backed location source.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

// Recording is the on-disk format of a recorded tracker run. When Classes is
// set, an observation's class label may be an index into it.
type Recording struct {
	Classes []string       `json:"classes,omitempty"`
	Frames  []domain.Frame `json:"frames"`
}

// ReplaySource plays back a recorded tracker run. Each frame carries the
// observations the tracker produced for it.
type ReplaySource struct {
	path string

	mu     sync.Mutex
	frames []domain.Frame
	pos    int
}

// NewReplaySource loads the recording at path
func NewReplaySource(path string) (*ReplaySource, error) {
	s := &ReplaySource{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ReplaySource) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("replay: failed to read recording: %w", err)
	}

	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("replay: failed to decode recording: %w", err)
	}

	s.frames = rec.resolveLabels()
	s.pos = 0
	return nil
}

// resolveLabels replaces numeric class labels with their names from Classes
func (rec *Recording) resolveLabels() []domain.Frame {
	if len(rec.Classes) == 0 {
		return rec.Frames
	}
	for i := range rec.Frames {
		for j := range rec.Frames[i].Observations {
			obs := &rec.Frames[i].Observations[j]
			if n, err := strconv.Atoi(obs.ClassLabel); err == nil && n >= 0 && n < len(rec.Classes) {
				obs.ClassLabel = rec.Classes[n]
			}
		}
	}
	return rec.Frames
}

// Next returns the next recorded frame
func (s *ReplaySource) Next(ctx context.Context) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.frames) {
		return domain.Frame{}, domain.ErrEndOfStream
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Restart reloads the recording from disk and rewinds to the first frame
func (s *ReplaySource) Restart(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Len returns the number of frames in the recording
func (s *ReplaySource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}
