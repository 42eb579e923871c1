package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/smartcity/vehicle-counter/internal/domain"
	"github.com/smartcity/vehicle-counter/internal/timeutil"
	"github.com/smartcity/vehicle-counter/pkg/geometry"
)

const (
	// DefaultConfidenceThreshold is the minimum (exclusive) detection confidence
	DefaultConfidenceThreshold = 0.25
	// recordTimeout bounds a single sink write
	recordTimeout = 5 * time.Second
)

// LocationReader exposes the currently active location id
type LocationReader interface {
	Current() string
}

// StaticLocation is a LocationReader that never changes
type StaticLocation string

// Current returns the fixed location id
func (s StaticLocation) Current() string {
	return string(s)
}

// EngineConfig holds the counting parameters
type EngineConfig struct {
	Gate                domain.Gate
	ConfidenceThreshold float64
	MaxIdleFrames       uint64
}

// EngineStats reports the size of the engine's per-id state
type EngineStats struct {
	TrackedIDs int `json:"tracked_ids"`
	CountedIDs int `json:"counted_ids"`
	Evicted    int `json:"evicted"`
}

// Engine turns tracked observations into at-most-once crossing events.
// Process must be called from a single goroutine; Counters and Stats are
// safe to read concurrently.
type Engine struct {
	gate       domain.Gate
	threshold  float64
	classifier *Classifier
	memory     *PositionMemory
	counted    *CountedSet
	sink       domain.EventSink
	location   LocationReader
	clock      timeutil.Clock

	mu       sync.RWMutex
	counters domain.Counters
	stats    EngineStats
}

// NewEngine creates a counting engine
func NewEngine(
	cfg EngineConfig,
	classifier *Classifier,
	sink domain.EventSink,
	location LocationReader,
	clock timeutil.Clock,
) *Engine {
	if classifier == nil {
		classifier = NewClassifier()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Engine{
		gate:       cfg.Gate,
		threshold:  cfg.ConfidenceThreshold,
		classifier: classifier,
		memory:     NewPositionMemory(cfg.MaxIdleFrames),
		counted:    NewCountedSet(),
		sink:       sink,
		location:   location,
		clock:      clock,
	}
}

// Process runs one frame's observations through the crossing test and
// returns the events emitted, in observation order.
func (e *Engine) Process(ctx context.Context, observations []domain.TrackedObservation) []domain.CrossingEvent {
	// One location snapshot per frame batch
	locationID := e.location.Current()
	e.memory.Tick()

	var events []domain.CrossingEvent
	for _, obs := range observations {
		if !e.accept(obs) {
			continue
		}

		centroid := obs.BBox.Centroid()
		prev := e.memory.GetOrInit(obs.ID, centroid)

		if geometry.Crossed(e.gate.Start, e.gate.End, prev, centroid) && e.counted.Add(obs.ID) {
			event := domain.CrossingEvent{
				UUID:        uuid.NewString(),
				Timestamp:   e.clock.Now(),
				VehicleType: e.classifier.Canonical(obs.ClassLabel),
				VehicleID:   obs.ID,
				LocationID:  locationID,
			}

			e.mu.Lock()
			e.counters.Add(event.VehicleType)
			e.mu.Unlock()

			e.record(ctx, event)
			events = append(events, event)
		}

		e.memory.Update(obs.ID, centroid)
	}

	evicted := e.memory.Evict()
	for _, id := range evicted {
		e.counted.Remove(id)
	}

	e.mu.Lock()
	e.stats.TrackedIDs = e.memory.Len()
	e.stats.CountedIDs = e.counted.Len()
	e.stats.Evicted += len(evicted)
	e.mu.Unlock()

	return events
}

func (e *Engine) accept(obs domain.TrackedObservation) bool {
	return e.classifier.Recognized(obs.ClassLabel) && obs.Confidence > e.threshold
}

// record hands the event to the sink. Failures are logged and the event is
// dropped; the id stays counted. The write outlives cancellation of ctx so a
// crossing counted while shutting down is still stored.
func (e *Engine) record(ctx context.Context, event domain.CrossingEvent) {
	if e.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := e.sink.Record(ctx, event); err != nil {
		log.Errorf("Failed to record crossing of %s %d at %q: %v",
			event.VehicleType, event.VehicleID, event.LocationID, err)
		return
	}
	log.Infof("Counted %s (ID: %d) at %s", event.VehicleType, event.VehicleID, event.LocationID)
}

// Counters returns a snapshot of the running totals
func (e *Engine) Counters() domain.Counters {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.counters
}

// Stats returns a snapshot of the engine state sizes
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}
