package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/smartcity/vehicle-counter/internal/domain"
	"github.com/smartcity/vehicle-counter/internal/timeutil"
)

// DefaultLocationInterval is how often the location source is polled
const DefaultLocationInterval = 5 * time.Second

// LocationState reports whether the provider checked its source recently
type LocationState int

const (
	// LocationStale means the interval elapsed since the last check
	LocationStale LocationState = iota
	// LocationFresh means the source was checked within the interval
	LocationFresh
)

func (s LocationState) String() string {
	if s == LocationFresh {
		return "fresh"
	}
	return "stale"
}

// LocationProvider polls an external source for the active location id and
// holds the last known value. Refresh is called from the frame loop only;
// Current and State may be called from any goroutine.
type LocationProvider struct {
	source   domain.LocationSource
	clock    timeutil.Clock
	interval time.Duration

	current   atomic.Value // string
	lastCheck atomic.Int64 // unix nanos
}

// NewLocationProvider reads the source once and falls back to fallback when
// it has no usable value.
func NewLocationProvider(
	ctx context.Context,
	source domain.LocationSource,
	clock timeutil.Clock,
	interval time.Duration,
	fallback string,
) *LocationProvider {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultLocationInterval
	}

	p := &LocationProvider{
		source:   source,
		clock:    clock,
		interval: interval,
	}
	p.current.Store(fallback)
	p.check(ctx, clock.Now())

	log.Infof("Current active location: %s", p.Current())
	return p
}

// Current returns the last known location id
func (p *LocationProvider) Current() string {
	return p.current.Load().(string)
}

// State reports whether the source was checked within the interval
func (p *LocationProvider) State() LocationState {
	last := time.Unix(0, p.lastCheck.Load())
	if p.clock.Since(last) > p.interval {
		return LocationStale
	}
	return LocationFresh
}

// Interval returns the polling interval
func (p *LocationProvider) Interval() time.Duration {
	return p.interval
}

// Refresh reads the source if the interval has elapsed since the last check.
// It reports whether a check happened.
func (p *LocationProvider) Refresh(ctx context.Context) bool {
	if p.State() == LocationFresh {
		return false
	}
	p.check(ctx, p.clock.Now())
	return true
}

func (p *LocationProvider) check(ctx context.Context, now time.Time) {
	p.lastCheck.Store(now.UnixNano())

	id, err := p.source.Read(ctx)
	if err != nil {
		log.Warnf("Keeping location %q: %v", p.Current(), err)
		return
	}

	id = strings.TrimSpace(id)
	if id == "" {
		log.Warnf("Keeping location %q: location source is empty", p.Current())
		return
	}

	if prev := p.Current(); id != prev {
		p.current.Store(id)
		log.Infof("Location changed to: %s", id)
	}
}

// Catalog is the set of locations an operator may activate
type Catalog struct {
	locations []domain.Location
	byID      map[string]domain.Location
}

// NewCatalog builds a catalog from the given locations
func NewCatalog(locations []domain.Location) *Catalog {
	c := &Catalog{
		locations: locations,
		byID:      make(map[string]domain.Location, len(locations)),
	}
	for _, l := range locations {
		c.byID[l.ID] = l
	}
	return c
}

// Lookup returns the location with the given id
func (c *Catalog) Lookup(id string) (domain.Location, error) {
	l, ok := c.byID[id]
	if !ok {
		return domain.Location{}, fmt.Errorf("catalog: %q: %w", id, domain.ErrUnknownLocation)
	}
	return l, nil
}

// All returns every location in catalog order
func (c *Catalog) All() []domain.Location {
	out := make([]domain.Location, len(c.locations))
	copy(out, c.locations)
	return out
}
