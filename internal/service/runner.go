package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/smartcity/vehicle-counter/internal/domain"
	"github.com/smartcity/vehicle-counter/internal/timeutil"
)

const (
	// DefaultSkipFactor admits every third frame
	DefaultSkipFactor = 3
	// DefaultMaxRestartFailures is the number of consecutive failed restarts
	// after which the frame source is considered gone
	DefaultMaxRestartFailures = 3
	// DefaultStatsInterval is how often throughput is logged
	DefaultStatsInterval = 30 * time.Second
)

// LocationRefresher is polled once per admitted frame
type LocationRefresher interface {
	Refresh(ctx context.Context) bool
}

// RunnerConfig holds the sampling parameters
type RunnerConfig struct {
	SkipFactor         int
	MaxRestartFailures int
	StatsInterval      time.Duration
}

// RunnerStats reports frame loop progress
type RunnerStats struct {
	FramesRead      uint64  `json:"frames_read"`
	FramesProcessed uint64  `json:"frames_processed"`
	TrackErrors     uint64  `json:"track_errors"`
	Restarts        uint64  `json:"restarts"`
	Events          uint64  `json:"events"`
	FPS             float64 `json:"fps"`
}

// Runner drives the frame loop: it samples frames, restarts the source at
// end of stream and feeds tracker output to the engine.
type Runner struct {
	source   domain.FrameSource
	tracker  domain.Tracker
	engine   *Engine
	location LocationRefresher
	clock    timeutil.Clock
	cfg      RunnerConfig

	frameCount uint64

	mu    sync.RWMutex
	stats RunnerStats
}

// NewRunner creates a frame loop controller
func NewRunner(
	cfg RunnerConfig,
	source domain.FrameSource,
	tracker domain.Tracker,
	engine *Engine,
	location LocationRefresher,
	clock timeutil.Clock,
) *Runner {
	if cfg.SkipFactor <= 0 {
		cfg.SkipFactor = DefaultSkipFactor
	}
	if cfg.MaxRestartFailures <= 0 {
		cfg.MaxRestartFailures = DefaultMaxRestartFailures
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = DefaultStatsInterval
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Runner{
		source:   source,
		tracker:  tracker,
		engine:   engine,
		location: location,
		clock:    clock,
		cfg:      cfg,
	}
}

// Run loops until ctx is cancelled, returning nil, or until the frame
// source cannot be restarted, returning an error.
func (r *Runner) Run(ctx context.Context) error {
	var (
		failures       int
		restartPending bool
		start          = r.clock.Now()
		lastStats      = start
	)

	log.Infof("Starting vehicle detection (frame skip %d)", r.cfg.SkipFactor)

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := r.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, domain.ErrEndOfStream) {
				log.Info("Video ended, restarting...")
			} else {
				log.Warnf("Frame acquisition failed, restarting: %v", err)
			}

			// A restart that yields no frame counts as failed
			if restartPending {
				failures++
				restartPending = false
			}
			if failures >= r.cfg.MaxRestartFailures {
				return fmt.Errorf("runner: frame source unavailable after %d restart attempts: %w", failures, err)
			}

			if rerr := r.source.Restart(ctx); rerr != nil {
				if ctx.Err() != nil {
					return nil
				}
				failures++
				log.Errorf("Failed to restart frame source (%d/%d): %v", failures, r.cfg.MaxRestartFailures, rerr)
				if failures >= r.cfg.MaxRestartFailures {
					return fmt.Errorf("runner: failed to restart frame source: %w", rerr)
				}
				continue
			}

			restartPending = true
			r.mu.Lock()
			r.stats.Restarts++
			r.mu.Unlock()
			continue
		}

		failures = 0
		restartPending = false
		r.frameCount++

		r.mu.Lock()
		r.stats.FramesRead++
		r.mu.Unlock()

		if r.frameCount%uint64(r.cfg.SkipFactor) != 0 {
			continue
		}

		r.processFrame(ctx, frame)

		if now := r.clock.Now(); now.Sub(lastStats) >= r.cfg.StatsInterval {
			r.logStats(now.Sub(start))
			lastStats = now
		}
	}
}

func (r *Runner) processFrame(ctx context.Context, frame domain.Frame) {
	if r.location != nil {
		r.location.Refresh(ctx)
	}

	observations, err := r.tracker.Track(ctx, frame)
	if err != nil {
		if ctx.Err() == nil {
			log.Warnf("Tracking failed for frame %d: %v", frame.Index, err)
		}
		r.mu.Lock()
		r.stats.TrackErrors++
		r.mu.Unlock()
		return
	}

	events := r.engine.Process(ctx, observations)

	r.mu.Lock()
	r.stats.FramesProcessed++
	r.stats.Events += uint64(len(events))
	r.mu.Unlock()
}

func (r *Runner) logStats(elapsed time.Duration) {
	r.mu.Lock()
	if secs := elapsed.Seconds(); secs > 0 {
		r.stats.FPS = float64(r.stats.FramesRead) / secs
	}
	s := r.stats
	r.mu.Unlock()

	c := r.engine.Counters()
	log.Infof("FPS: %.1f | frames %d/%d | Cars: %d | Bikes: %d | Trucks: %d | Buses: %d",
		s.FPS, s.FramesProcessed, s.FramesRead, c.Cars, c.Motorcycles, c.Trucks, c.Buses)
}

// Stats returns a snapshot of loop progress
func (r *Runner) Stats() RunnerStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}
