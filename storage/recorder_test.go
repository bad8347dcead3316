package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/imu/mpu9250"
	"github.com/mklimuk/imu/sampler"
)

func openRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "imu.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func sampleAt(ms int64, x int) sampler.Sample {
	return sampler.Sample{
		Time:          time.UnixMilli(ms),
		Acceleration:  mpu9250.Acceleration{X: x, Y: -x, Z: 16384},
		MagneticField: mpu9250.MagneticField{X: 614.15, Y: -0.5, Z: float64(x) / 4},
	}
}

func TestRecorder_WriteWithoutSession(t *testing.T) {
	r := openRecorder(t)
	assert.ErrorIs(t, r.Write(context.Background(), sampleAt(1, 1)), ErrNoSession)
}

func TestRecorder_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := openRecorder(t)
	r.now = func() time.Time { return time.UnixMilli(1714564800000) }

	first, err := r.CreateSession(ctx, "mcp2221", map[string]any{"bus": 1, "interval": "100ms"})
	require.NoError(t, err)
	require.NoError(t, r.Write(ctx, sampleAt(1000, 1)))
	require.NoError(t, r.Write(ctx, sampleAt(1100, 2)))

	second, err := r.CreateSession(ctx, "mock", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	require.NoError(t, r.Write(ctx, sampleAt(2000, 3)))

	sessions, err := r.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first, sessions[0].ID)
	assert.Equal(t, "mcp2221", sessions[0].Device)
	assert.Equal(t, int64(1714564800000), sessions[0].StartTime.UnixMilli())
	assert.Contains(t, sessions[0].Config, "interval: 100ms")
	assert.Empty(t, sessions[1].Config)

	var got []sampler.Sample
	err = r.Samples(ctx, first, func(s sampler.Sample) error {
		got = append(got, s)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].Time.UnixMilli())
	assert.Equal(t, sampleAt(1100, 2).Acceleration, got[1].Acceleration)
	assert.Equal(t, sampleAt(1100, 2).MagneticField, got[1].MagneticField)

	count := 0
	require.NoError(t, r.Samples(ctx, second, func(s sampler.Sample) error {
		count++
		return nil
	}))
	assert.Equal(t, 1, count)
}

func TestRecorder_SamplesStopsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	r := openRecorder(t)
	id, err := r.CreateSession(ctx, "mock", "raw config")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Write(ctx, sampleAt(int64(i), i)))
	}
	stop := errors.New("stop")
	calls := 0
	err = r.Samples(ctx, id, func(s sampler.Sample) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)

	sessions, err := r.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "raw config", sessions[0].Config)
}

func TestRecorder_IsSink(t *testing.T) {
	var _ sampler.Sink = (*Recorder)(nil)
}
