package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"gobot.io/x/gobot/v2/platforms/raspi"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/imu"
	"github.com/mklimuk/imu/adapter"
	"github.com/mklimuk/imu/config"
	"github.com/mklimuk/imu/i2c"
	"github.com/mklimuk/imu/mpu9250"
	"github.com/mklimuk/imu/sampler"
)

var ErrUnknownAdapter = errors.New("unknown adapter")

// device bundles an initialized sensor with whatever must be released after it.
type device struct {
	sensor sampler.Sensor
	// driver is nil for the mock adapter
	driver  *mpu9250.MPU9250
	closers []func() error
}

func (d *device) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

// openDevice sets up the configured adapter and initializes the sensor on it.
func openDevice(ctx context.Context, cfg config.Config, speedKHz int) (*device, error) {
	d := &device{}
	var transport imu.Transport
	switch cfg.Adapter {
	case config.AdapterMock:
		d.sensor = mockSensor()
		return d, nil
	case config.AdapterPeriph:
		bus, err := i2c.NewGenericBus(cfg.Device)
		if err != nil {
			return nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		d.closers = append(d.closers, bus.Close)
		if speedKHz > 0 {
			if err = bus.SetSpeed(physic.Frequency(speedKHz) * physic.KiloHertz); err != nil {
				_ = d.Close()
				return nil, err
			}
		}
		slog.Debug("periph bus opened", "bus", bus.String())
		transport = i2c.NewRegisterTransport(bus, cfg.Sensor.Bus)
	case config.AdapterMCP2221:
		var opts []adapter.MCP2221Opt
		if cfg.Device != "" {
			idx, err := strconv.Atoi(cfg.Device)
			if err != nil {
				return nil, fmt.Errorf("mcp2221 device must be an enumeration index: %w", err)
			}
			opts = append(opts, adapter.WithDeviceIndex(idx))
		}
		bridge := adapter.NewMCP2221(opts...)
		if err := bridge.Init(); err != nil {
			return nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		if speedKHz > 0 {
			if err := bridge.SetSpeed(ctx, speedKHz*1000); err != nil {
				return nil, err
			}
		}
		transport = i2c.NewRegisterTransport(bridge, cfg.Sensor.Bus)
	case config.AdapterRaspi:
		board := raspi.NewAdaptor()
		if err := board.I2cBusAdaptor.Connect(); err != nil {
			return nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		d.closers = append(d.closers, board.I2cBusAdaptor.Finalize)
		transport = i2c.NewGobotTransport(board)
	case config.AdapterNanoPi:
		board := nanopi.NewNeoAdaptor()
		if err := board.I2cBusAdaptor.Connect(); err != nil {
			return nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		d.closers = append(d.closers, board.I2cBusAdaptor.Finalize)
		transport = i2c.NewGobotTransport(board)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, cfg.Adapter)
	}
	opts, err := cfg.DriverOptions()
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	driver, err := mpu9250.New(ctx, transport, opts...)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	slog.Debug("sensor ready", "adapter", cfg.Adapter, "bus", cfg.Sensor.Bus, "address", cfg.Sensor.Address.String(), "sensitivity", driver.Sensitivity())
	d.driver = driver
	d.sensor = driver
	d.closers = append(d.closers, driver.Close)
	return d, nil
}

// mockSensor lies flat (gravity on z at +-2g full scale) under a horizontal
// field that slowly turns around z.
func mockSensor() *mpu9250.MockSensor {
	start := time.Now()
	return mpu9250.NewMockSensor(
		func(ctx context.Context) (mpu9250.Acceleration, error) {
			return mpu9250.Acceleration{X: 0, Y: 0, Z: 16384}, nil
		},
		func(ctx context.Context) (mpu9250.MagneticField, error) {
			angle := time.Since(start).Seconds() / 10
			return mpu9250.MagneticField{
				X: 30 * math.Cos(angle),
				Y: 30 * math.Sin(angle),
				Z: -40,
			}, nil
		},
	)
}
