package domain

import (
	"context"
	"errors"
)

var (
	// ErrEndOfStream is returned by a FrameSource when it has no more frames
	ErrEndOfStream = errors.New("end of stream")

	// ErrUnknownLocation is returned when a location id is not in the catalog
	ErrUnknownLocation = errors.New("unknown location")
)

// EventSink defines the interface for durable crossing records.
// Implementations are append-only: they never update or delete an event.
type EventSink interface {
	// Record persists a single crossing event
	Record(ctx context.Context, event CrossingEvent) error
}

// FrameSource yields frames in temporal order
type FrameSource interface {
	// Next returns the next frame or ErrEndOfStream
	Next(ctx context.Context) (Frame, error)

	// Restart rewinds the source to its first frame
	Restart(ctx context.Context) error
}

// Tracker turns a frame into tracked observations with ids stable across frames
type Tracker interface {
	Track(ctx context.Context, frame Frame) ([]TrackedObservation, error)
}

// LocationSource reads the currently active location id from an external store
type LocationSource interface {
	Read(ctx context.Context) (string, error)
}
