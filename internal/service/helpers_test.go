package service

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2/log"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// obsAt returns an observation whose centroid is exactly (x, y)
func obsAt(id int64, label string, x, y int) domain.TrackedObservation {
	return domain.TrackedObservation{
		ID:         id,
		ClassLabel: label,
		BBox: domain.BBox{
			X1: float64(x - 10), Y1: float64(y - 10),
			X2: float64(x + 10), Y2: float64(y + 10),
		},
		Confidence: 0.9,
	}
}

// fakeLocationSource returns scripted values
type fakeLocationSource struct {
	mu    sync.Mutex
	value string
	err   error
	reads int
}

func (s *fakeLocationSource) Read(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.value, s.err
}

func (s *fakeLocationSource) set(value string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value, s.err = value, err
}

func (s *fakeLocationSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// sequenceLocation changes on every read
type sequenceLocation struct {
	values []string
	n      int
}

func (s *sequenceLocation) Current() string {
	v := s.values[s.n%len(s.values)]
	s.n++
	return v
}

// scriptedSource yields a fixed list of frames and loops on Restart
type scriptedSource struct {
	frames     []domain.Frame
	pos        int
	restarts   int
	restartErr error
	nextErr    error
}

func (s *scriptedSource) Next(ctx context.Context) (domain.Frame, error) {
	if s.nextErr != nil {
		return domain.Frame{}, s.nextErr
	}
	if s.pos >= len(s.frames) {
		return domain.Frame{}, domain.ErrEndOfStream
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *scriptedSource) Restart(ctx context.Context) error {
	s.restarts++
	if s.restartErr != nil {
		return s.restartErr
	}
	s.pos = 0
	return nil
}

func framesN(n int) []domain.Frame {
	frames := make([]domain.Frame, n)
	for i := range frames {
		frames[i] = domain.Frame{Index: i}
	}
	return frames
}

// recordingTracker records frame indices and can stop the loop
type recordingTracker struct {
	seen   []int
	stopAt int
	cancel context.CancelFunc
	failOn map[int]bool
	output func(frame domain.Frame) []domain.TrackedObservation
}

func (t *recordingTracker) Track(ctx context.Context, frame domain.Frame) ([]domain.TrackedObservation, error) {
	t.seen = append(t.seen, frame.Index)
	if t.stopAt > 0 && len(t.seen) >= t.stopAt && t.cancel != nil {
		t.cancel()
	}
	if t.failOn[frame.Index] {
		return nil, errors.New("tracker unavailable")
	}
	if t.output != nil {
		return t.output(frame), nil
	}
	return frame.Observations, nil
}

// countingRefresher counts refresh calls
type countingRefresher struct {
	calls int
}

func (r *countingRefresher) Refresh(ctx context.Context) bool {
	r.calls++
	return true
}

// contextSink stores events like a database would, refusing writes on a
// done context
type contextSink struct {
	mu     sync.Mutex
	events []domain.CrossingEvent
}

func (s *contextSink) Record(ctx context.Context, event domain.CrossingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *contextSink) Events() []domain.CrossingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CrossingEvent(nil), s.events...)
}
