package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/vehicle-counter/internal/domain"
	"github.com/smartcity/vehicle-counter/internal/repository/memory"
)

type closingSink struct {
	*memory.Repository
	closed   bool
	closeErr error
}

func (s *closingSink) Close() error {
	s.closed = true
	return s.closeErr
}

func TestMultiSink_RecordsToAll(t *testing.T) {
	ctx := context.Background()
	a, b := memory.NewRepository(), memory.NewRepository()
	m := NewMultiSink(a, nil, b)
	assert.Equal(t, 2, m.Len())

	event := domain.CrossingEvent{VehicleID: 5}
	require.NoError(t, m.Record(ctx, event))
	assert.Equal(t, []domain.CrossingEvent{event}, a.Events())
	assert.Equal(t, []domain.CrossingEvent{event}, b.Events())
}

func TestMultiSink_FailureDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	broken, csv := memory.NewRepository(), memory.NewRepository()
	boom := errors.New("disk full")
	broken.FailWith(boom)

	m := NewMultiSink(broken, csv)
	err := m.Record(ctx, domain.CrossingEvent{VehicleID: 5})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, csv.Events(), 1)
}

func TestMultiSink_Close(t *testing.T) {
	boom := errors.New("flush failed")
	a := &closingSink{Repository: memory.NewRepository()}
	b := &closingSink{Repository: memory.NewRepository(), closeErr: boom}

	err := NewMultiSink(a, memory.NewRepository(), b).Close()
	assert.ErrorIs(t, err, boom)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
