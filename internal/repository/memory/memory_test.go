package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	r := NewRepository()

	require.NoError(t, r.Record(ctx, domain.CrossingEvent{VehicleID: 1}))

	boom := errors.New("storage unavailable")
	r.FailWith(boom)
	assert.ErrorIs(t, r.Record(ctx, domain.CrossingEvent{VehicleID: 2}), boom)

	r.FailWith(nil)
	require.NoError(t, r.Record(ctx, domain.CrossingEvent{VehicleID: 3}))

	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].VehicleID)
	assert.Equal(t, int64(3), events[1].VehicleID)
	assert.Equal(t, 3, r.Calls())
	assert.NoError(t, r.Health(ctx))
}
