// Package config loads the YAML configuration of the imu tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/imu/mpu9250"
)

const (
	AdapterPeriph  = "periph"
	AdapterMCP2221 = "mcp2221"
	AdapterRaspi   = "raspi"
	AdapterNanoPi  = "nanopi"
	AdapterMock    = "mock"

	FormatText = "text"
	FormatJSON = "json"
)

var adapters = map[string]struct{}{
	AdapterPeriph:  {},
	AdapterMCP2221: {},
	AdapterRaspi:   {},
	AdapterNanoPi:  {},
	AdapterMock:    {},
}

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Adapter   string          `yaml:"adapter"`
	Device    string          `yaml:"device"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Sampling  SamplingConfig  `yaml:"sampling"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Storage   StorageConfig   `yaml:"storage"`
}

// SensorConfig maps onto the mpu9250 driver options.
type SensorConfig struct {
	Bus        int     `yaml:"bus"`
	Address    HexByte `yaml:"address"`
	MagAddress HexByte `yaml:"magAddress"`
	// MagMode is "8hz" or "100hz".
	MagMode    string `yaml:"magMode"`
	OutputBits int    `yaml:"outputBits"`
}

type SamplingConfig struct {
	Interval             Duration `yaml:"interval"`
	MaxConsecutiveErrors int      `yaml:"maxConsecutiveErrors"`
}

type TelemetryConfig struct {
	// Address of the mission control relay, empty disables telemetry.
	Address      string   `yaml:"address"`
	Format       string   `yaml:"format"`
	WriteTimeout Duration `yaml:"writeTimeout"`
}

type StorageConfig struct {
	// Path of the SQLite database, empty disables recording.
	Path string `yaml:"path"`
}

func Default() Config {
	return Config{
		Adapter: AdapterPeriph,
		Device:  "",
		Sensor: SensorConfig{
			Bus:        1,
			Address:    mpu9250.DefaultAddress,
			MagAddress: mpu9250.DefaultMagAddress,
			MagMode:    "8hz",
			OutputBits: 16,
		},
		Sampling: SamplingConfig{
			Interval:             Duration(100 * time.Millisecond),
			MaxConsecutiveErrors: 10,
		},
		Telemetry: TelemetryConfig{
			Format:       FormatText,
			WriteTimeout: Duration(time.Second),
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("could not read config file: %w", err)
	}
	if err = yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if _, ok := adapters[c.Adapter]; !ok {
		errs = append(errs, fmt.Errorf("%w: unknown adapter %q", ErrInvalid, c.Adapter))
	}
	if c.Sensor.Bus < 0 {
		errs = append(errs, fmt.Errorf("%w: negative bus number %d", ErrInvalid, c.Sensor.Bus))
	}
	if c.Sensor.Address != mpu9250.DefaultAddress && c.Sensor.Address != mpu9250.AltAddress {
		errs = append(errs, fmt.Errorf("%w: sensor address %s is neither 0x68 nor 0x69", ErrInvalid, c.Sensor.Address))
	}
	if c.Sensor.MagAddress > 0x7F {
		errs = append(errs, fmt.Errorf("%w: magnetometer address %s out of 7-bit range", ErrInvalid, c.Sensor.MagAddress))
	}
	if _, err := c.Sensor.magMode(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Sensor.outputBits(); err != nil {
		errs = append(errs, err)
	}
	if c.Sampling.Interval <= 0 {
		errs = append(errs, fmt.Errorf("%w: sampling interval must be positive", ErrInvalid))
	}
	if c.Sampling.MaxConsecutiveErrors < 0 {
		errs = append(errs, fmt.Errorf("%w: maxConsecutiveErrors must not be negative", ErrInvalid))
	}
	if c.Telemetry.Format != FormatText && c.Telemetry.Format != FormatJSON {
		errs = append(errs, fmt.Errorf("%w: unknown telemetry format %q", ErrInvalid, c.Telemetry.Format))
	}
	return errors.Join(errs...)
}

// DriverOptions converts the sensor section into driver options.
func (c Config) DriverOptions() ([]mpu9250.Option, error) {
	mode, err := c.Sensor.magMode()
	if err != nil {
		return nil, err
	}
	bits, err := c.Sensor.outputBits()
	if err != nil {
		return nil, err
	}
	return []mpu9250.Option{
		mpu9250.WithBus(c.Sensor.Bus),
		mpu9250.WithAddress(byte(c.Sensor.Address)),
		mpu9250.WithMagAddress(byte(c.Sensor.MagAddress)),
		mpu9250.WithMagMode(mode),
		mpu9250.WithOutputBits(bits),
	}, nil
}

func (s SensorConfig) magMode() (mpu9250.MagMode, error) {
	switch strings.ToLower(s.MagMode) {
	case "8hz", "":
		return mpu9250.MagModeContinuous8Hz, nil
	case "100hz":
		return mpu9250.MagModeContinuous100Hz, nil
	}
	return 0, fmt.Errorf("%w: unknown magnetometer mode %q", ErrInvalid, s.MagMode)
}

func (s SensorConfig) outputBits() (mpu9250.OutputBits, error) {
	switch s.OutputBits {
	case 16, 0:
		return mpu9250.Output16Bit, nil
	case 14:
		return mpu9250.Output14Bit, nil
	}
	return 0, fmt.Errorf("%w: output bits must be 14 or 16, got %d", ErrInvalid, s.OutputBits)
}

// HexByte is a byte written as "0x68" or a plain integer in YAML.
type HexByte byte

func (h HexByte) String() string {
	return fmt.Sprintf("0x%02x", byte(h))
}

func (h *HexByte) UnmarshalYAML(value *yaml.Node) error {
	v, err := strconv.ParseUint(value.Value, 0, 8)
	if err != nil {
		return fmt.Errorf("config.HexByte: failed to parse %q: %w", value.Value, err)
	}
	*h = HexByte(v)
	return nil
}

func (h HexByte) MarshalYAML() (interface{}, error) {
	return h.String(), nil
}

// Duration is a time.Duration written as "100ms" in YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config.Duration: failed to parse: %w", err)
	}
	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
