package service

import (
	"context"
	"errors"
	"io"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

// MultiSink records every event to all of its sinks. A failing sink does not
// stop the others; their errors are joined.
type MultiSink struct {
	sinks []EventSink
}

// NewMultiSink creates a fan-out sink, skipping nil entries
func NewMultiSink(sinks ...EventSink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Record writes the event to every sink
func (m *MultiSink) Record(ctx context.Context, event domain.CrossingEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of sinks
func (m *MultiSink) Len() int {
	return len(m.sinks)
}
