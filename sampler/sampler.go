// Package sampler polls a sensor at a fixed interval and fans the stamped
// samples out to sinks (console, telemetry, storage).
package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mklimuk/imu/mpu9250"
)

var ErrTooManyFailures = errors.New("too many consecutive sensor failures")

const (
	DefaultInterval             = 100 * time.Millisecond
	DefaultMaxConsecutiveErrors = 10
)

// Sensor is the update/accessor surface shared by the driver and its mock.
type Sensor interface {
	UpdateAcceleration(ctx context.Context) error
	UpdateMagneticField(ctx context.Context) error
	Acceleration() mpu9250.Acceleration
	MagneticField() mpu9250.MagneticField
}

type Sample struct {
	Time          time.Time
	Acceleration  mpu9250.Acceleration
	MagneticField mpu9250.MagneticField
}

type Sink interface {
	Write(ctx context.Context, s Sample) error
}

type SinkFunc func(ctx context.Context, s Sample) error

func (f SinkFunc) Write(ctx context.Context, s Sample) error {
	return f(ctx, s)
}

type Option func(*Sampler)

func WithInterval(d time.Duration) Option {
	return func(s *Sampler) {
		s.interval = d
	}
}

func WithSinks(sinks ...Sink) Option {
	return func(s *Sampler) {
		s.sinks = append(s.sinks, sinks...)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) {
		s.logger = l
	}
}

// WithMaxConsecutiveErrors sets how many failed reads in a row abort Run. Zero never aborts.
func WithMaxConsecutiveErrors(n int) Option {
	return func(s *Sampler) {
		s.maxErrors = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Sampler) {
		s.now = now
	}
}

type Sampler struct {
	sensor    Sensor
	interval  time.Duration
	sinks     []Sink
	logger    *slog.Logger
	maxErrors int
	now       func() time.Time
	count     atomic.Uint64
}

func New(sensor Sensor, opts ...Option) *Sampler {
	s := &Sampler{
		sensor:    sensor,
		interval:  DefaultInterval,
		logger:    slog.Default(),
		maxErrors: DefaultMaxConsecutiveErrors,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	return s
}

// Sample reads acceleration then magnetic field and stamps the result.
func (s *Sampler) Sample(ctx context.Context) (Sample, error) {
	if err := s.sensor.UpdateAcceleration(ctx); err != nil {
		return Sample{}, err
	}
	if err := s.sensor.UpdateMagneticField(ctx); err != nil {
		return Sample{}, err
	}
	return Sample{
		Time:          s.now(),
		Acceleration:  s.sensor.Acceleration(),
		MagneticField: s.sensor.MagneticField(),
	}, nil
}

// Run samples until ctx is done. Failed reads are skipped; Run gives up with
// ErrTooManyFailures once the consecutive failure limit is hit.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	failures := 0
	for {
		sample, err := s.Sample(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			failures++
			s.logger.Warn("sensor read failed", "error", err, "consecutive", failures)
			if s.maxErrors > 0 && failures >= s.maxErrors {
				return fmt.Errorf("%w: %d in a row: %w", ErrTooManyFailures, failures, err)
			}
		default:
			failures = 0
			s.deliver(ctx, sample)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sampler) deliver(ctx context.Context, sample Sample) {
	s.count.Add(1)
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, sample); err != nil {
			s.logger.Error("could not deliver sample", "error", err)
		}
	}
}

// Count returns the number of samples delivered so far.
func (s *Sampler) Count() uint64 {
	return s.count.Load()
}
