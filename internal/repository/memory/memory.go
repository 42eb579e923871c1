package memory

import (
	"context"
	"sync"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

// Repository keeps crossing events in process memory. It backs demo mode
// when no database is configured and doubles as a test sink.
type Repository struct {
	mu     sync.Mutex
	events []domain.CrossingEvent
	calls  int
	err    error
}

// NewRepository creates an empty in-memory repository
func NewRepository() *Repository {
	return &Repository{}
}

// Record stores the event, or returns the configured failure
func (r *Repository) Record(ctx context.Context, event domain.CrossingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

// FailWith makes every following Record return err; nil restores success
func (r *Repository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Events returns a copy of the stored events in record order
func (r *Repository) Events() []domain.CrossingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CrossingEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Calls returns how many times Record was called, failed calls included
func (r *Repository) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Health always returns nil in memory mode
func (r *Repository) Health(ctx context.Context) error {
	return nil
}
