package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/robofleet/internal/adapters/realtime"
)

func TestNewPacer_RejectsNonPositiveFactor(t *testing.T) {
	_, err := realtime.NewPacer(0)
	assert.Error(t, err)
}

func TestPacer_WaitsForWallClock(t *testing.T) {
	// 50 simulated seconds per wall second: one simulated second is 20ms
	p, err := realtime.NewPacer(50)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, p.Pace(context.Background(), 1))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	// no simulated progress, no wait
	start = time.Now()
	require.NoError(t, p.Pace(context.Background(), 1))
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestPacer_CancelledContext(t *testing.T) {
	p, err := realtime.NewPacer(1)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, p.Pace(ctx, 5))
}
