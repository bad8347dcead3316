package sampler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/imu"
	"github.com/mklimuk/imu/mpu9250"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func steadySensor() *mpu9250.MockSensor {
	return mpu9250.NewMockSensor(
		func(ctx context.Context) (mpu9250.Acceleration, error) {
			return mpu9250.Acceleration{X: 1, Y: 2, Z: 16384}, nil
		},
		func(ctx context.Context) (mpu9250.MagneticField, error) {
			return mpu9250.MagneticField{X: 20.5, Y: -3.25, Z: 41}, nil
		},
	)
}

type collector struct {
	mu      sync.Mutex
	samples []Sample
}

func (c *collector) Write(ctx context.Context, s Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s)
	return nil
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

func TestSample(t *testing.T) {
	s := New(steadySensor(), WithClock(fixedClock))
	sample, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Sample{
		Time:          fixedClock(),
		Acceleration:  mpu9250.Acceleration{X: 1, Y: 2, Z: 16384},
		MagneticField: mpu9250.MagneticField{X: 20.5, Y: -3.25, Z: 41},
	}, sample)
}

func TestSample_OrderAndFailure(t *testing.T) {
	var order []string
	readErr := &imu.TransportError{Op: "read", Bus: 1, Address: 0x68, Register: 0x3c, Err: errors.New("nack")}
	sensor := mpu9250.NewMockSensor(
		func(ctx context.Context) (mpu9250.Acceleration, error) {
			order = append(order, "accel")
			return mpu9250.Acceleration{}, readErr
		},
		func(ctx context.Context) (mpu9250.MagneticField, error) {
			order = append(order, "mag")
			return mpu9250.MagneticField{}, nil
		},
	)
	_, err := New(sensor).Sample(context.Background())
	assert.ErrorIs(t, err, imu.ErrTransport)
	// magnetometer is not read after a failed accelerometer read
	assert.Equal(t, []string{"accel"}, order)
}

func TestRun_DeliversUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &collector{}
	var sinkCalls int
	s := New(steadySensor(),
		WithInterval(time.Millisecond),
		WithLogger(quiet),
		WithSinks(c, SinkFunc(func(ctx context.Context, s Sample) error {
			sinkCalls++
			return nil
		})),
	)
	done := make(chan error)
	go func() {
		done <- s.Run(ctx)
	}()
	assert.Eventually(t, func() bool { return c.len() >= 5 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sampler did not stop")
	}
	assert.Equal(t, uint64(c.len()), s.Count())
	assert.Equal(t, c.len(), sinkCalls)
}

func TestRun_SkipsFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	sensor := mpu9250.NewMockSensor(
		func(ctx context.Context) (mpu9250.Acceleration, error) {
			calls++
			if calls%2 == 0 {
				return mpu9250.Acceleration{}, errors.New("sensor malfunction")
			}
			return mpu9250.Acceleration{Z: calls}, nil
		},
		func(ctx context.Context) (mpu9250.MagneticField, error) {
			return mpu9250.MagneticField{}, nil
		},
	)
	c := &collector{}
	s := New(sensor, WithInterval(time.Millisecond), WithLogger(quiet), WithSinks(c), WithMaxConsecutiveErrors(2))
	done := make(chan error)
	go func() {
		done <- s.Run(ctx)
	}()
	assert.Eventually(t, func() bool { return c.len() >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sample := range c.samples {
		assert.Equal(t, 1, sample.Acceleration.Z%2)
	}
}

func TestRun_AbortsAfterConsecutiveFailures(t *testing.T) {
	cause := errors.New("sensor malfunction")
	sensor := mpu9250.NewMockSensor(
		func(ctx context.Context) (mpu9250.Acceleration, error) {
			return mpu9250.Acceleration{}, cause
		},
		func(ctx context.Context) (mpu9250.MagneticField, error) {
			return mpu9250.MagneticField{}, nil
		},
	)
	s := New(sensor, WithInterval(time.Millisecond), WithLogger(quiet), WithMaxConsecutiveErrors(3))
	err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrTooManyFailures)
	assert.ErrorIs(t, err, cause)
	assert.Zero(t, s.Count())
}

func TestRun_SinkErrorsDoNotAbort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &collector{}
	failing := SinkFunc(func(ctx context.Context, s Sample) error {
		return errors.New("connection refused")
	})
	s := New(steadySensor(), WithInterval(time.Millisecond), WithLogger(quiet), WithSinks(failing, c), WithMaxConsecutiveErrors(1))
	done := make(chan error)
	go func() {
		done <- s.Run(ctx)
	}()
	assert.Eventually(t, func() bool { return c.len() >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestNew_Defaults(t *testing.T) {
	s := New(steadySensor(), WithInterval(-time.Second))
	assert.Equal(t, DefaultInterval, s.interval)
	assert.Equal(t, DefaultMaxConsecutiveErrors, s.maxErrors)
}
