// Package mpu9250 drives the InvenSense MPU-9250: the MPU-6500 accelerometer
// unit plus the AK8963 magnetometer reached through the I2C bypass.
//
// Datasheets:
// https://invensense.tdk.com/wp-content/uploads/2015/02/RM-MPU-9250A-00-v1.6.pdf
// https://www.akm.com/akm/en/file/datasheet/AK8963C.pdf
//
// Typical usage:
//
//	s, err := mpu9250.New(ctx, transport)
//	if err != nil { ... }
//	defer s.Close()
//	err = s.UpdateAcceleration(ctx)
//	a := s.Acceleration()
//
// Measurements are cached: every Update call is a bus transaction that
// overwrites the cached value, the accessors never touch the bus. The driver
// is not safe for concurrent use.
package mpu9250

import (
	"context"
	"errors"
	"fmt"

	"github.com/mklimuk/imu"
)

// Acceleration is the last accelerometer reading in raw LSB units.
type Acceleration struct {
	X, Y, Z int
}

// Vector returns the reading as floats, e.g. for UnitVector.
func (a Acceleration) Vector() (float64, float64, float64) {
	return float64(a.X), float64(a.Y), float64(a.Z)
}

// MagneticField is the last magnetometer reading in uT, sensitivity adjusted.
type MagneticField struct {
	X, Y, Z float64
}

func (m MagneticField) Vector() (float64, float64, float64) {
	return m.X, m.Y, m.Z
}

// AxisSensitivity holds the factory adjustment factors read from the AK8963 fuse ROM.
type AxisSensitivity struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type Config struct {
	Bus        int
	Address    byte
	MagAddress byte
	MagMode    MagMode
	OutputBits OutputBits
}

type Option func(*Config)

func WithBus(bus int) Option {
	return func(c *Config) {
		c.Bus = bus
	}
}

func WithAddress(address byte) Option {
	return func(c *Config) {
		c.Address = address
	}
}

func WithMagAddress(address byte) Option {
	return func(c *Config) {
		c.MagAddress = address
	}
}

func WithMagMode(mode MagMode) Option {
	return func(c *Config) {
		c.MagMode = mode
	}
}

func WithOutputBits(bits OutputBits) Option {
	return func(c *Config) {
		c.OutputBits = bits
	}
}

// MPU9250 owns one handle per device: the accelerometer unit and the magnetometer.
type MPU9250 struct {
	config      Config
	mpu         imu.Handle
	mag         imu.Handle
	state       State
	scale       float64
	sensitivity AxisSensitivity
	accel       Acceleration
	field       MagneticField
}

// New opens both devices and runs the initialization sequence. Any failure is
// returned as *InitializationError and leaves nothing open.
func New(ctx context.Context, transport imu.Transport, opts ...Option) (*MPU9250, error) {
	config := Config{
		Bus:        1,
		Address:    DefaultAddress,
		MagAddress: DefaultMagAddress,
		MagMode:    MagModeContinuous8Hz,
		OutputBits: Output16Bit,
	}
	for _, opt := range opts {
		opt(&config)
	}
	s := &MPU9250{
		config: config,
		state:  StateUnconfigured,
		scale:  config.OutputBits.ScaleResolution(),
	}
	var err error
	s.mpu, err = transport.Open(ctx, config.Bus, config.Address)
	if err != nil {
		return nil, s.fail(fmt.Errorf("mpu9250: could not open device: %w", err))
	}
	err = s.mpu.WriteRegister(ctx, regUserCtrl, userCtrlMasterDisabled)
	if err != nil {
		return nil, s.abort(fmt.Errorf("mpu9250: could not disable i2c master: %w", err))
	}
	err = s.mpu.WriteRegister(ctx, regIntPinCfg, intPinCfgBypass)
	if err != nil {
		return nil, s.abort(fmt.Errorf("mpu9250: could not enable i2c bypass: %w", err))
	}
	s.state = StatePassthroughEnabled
	// the magnetometer only answers once the bypass is enabled
	s.mag, err = transport.Open(ctx, config.Bus, config.MagAddress)
	if err != nil {
		return nil, s.abort(fmt.Errorf("ak8963: could not open device: %w", err))
	}
	if err = s.initMagnetometer(ctx); err != nil {
		return nil, s.abort(err)
	}
	return s, nil
}

// fail wraps err with the stage reached so far.
func (s *MPU9250) fail(err error) error {
	return &InitializationError{Stage: s.state, Err: err}
}

// abort closes whatever is open and reports the failed stage.
func (s *MPU9250) abort(err error) error {
	ierr := s.fail(err)
	_ = s.Close()
	return ierr
}

func (s *MPU9250) initMagnetometer(ctx context.Context) error {
	// mode changes have to transit through power-down
	if err := s.setMagMode(ctx, magModePowerDown); err != nil {
		return fmt.Errorf("ak8963: could not power down: %w", err)
	}
	s.state = StateMagPoweredDown
	if err := s.setMagMode(ctx, magModeFuseROM); err != nil {
		return fmt.Errorf("ak8963: could not enter fuse rom mode: %w", err)
	}
	s.state = StateFuseROMRead
	asa, err := s.mag.ReadBlock(ctx, regMagASAX, asaLength)
	if err != nil {
		return fmt.Errorf("ak8963: could not read sensitivity adjustment: %w", err)
	}
	if len(asa) < asaLength {
		return fmt.Errorf("ak8963: could not read sensitivity adjustment: %w: got %d of %d bytes", imu.ErrShortRead, len(asa), asaLength)
	}
	s.sensitivity = AxisSensitivity{
		X: Sensitivity(asa[0]),
		Y: Sensitivity(asa[1]),
		Z: Sensitivity(asa[2]),
	}
	s.state = StateSensitivityCaptured
	if err := s.setMagMode(ctx, magModePowerDown); err != nil {
		return fmt.Errorf("ak8963: could not power down: %w", err)
	}
	s.state = StateMagPoweredDownAgain
	if err := s.setMagMode(ctx, byte(s.config.MagMode)); err != nil {
		return fmt.Errorf("ak8963: could not set %s mode: %w", s.config.MagMode, err)
	}
	s.state = StateReady
	return nil
}

func (s *MPU9250) setMagMode(ctx context.Context, mode byte) error {
	return s.mag.WriteRegister(ctx, regMagCNTL1, cntl1(s.config.OutputBits, mode))
}

// UpdateAcceleration reads the three accelerometer axes. Each axis is fetched
// with two single register reads, low byte first. On error the cached value
// is left untouched.
func (s *MPU9250) UpdateAcceleration(ctx context.Context) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	var res [3]int
	for i, reg := range [3]byte{regAccelXOutH, regAccelYOutH, regAccelZOutH} {
		low, err := s.mpu.ReadRegister(ctx, reg+1)
		if err != nil {
			return fmt.Errorf("mpu9250: could not read accel %s low byte: %w", axisName(i), err)
		}
		high, err := s.mpu.ReadRegister(ctx, reg)
		if err != nil {
			return fmt.Errorf("mpu9250: could not read accel %s high byte: %w", axisName(i), err)
		}
		res[i] = decode16(low, high)
	}
	s.accel = Acceleration{X: res[0], Y: res[1], Z: res[2]}
	return nil
}

// UpdateMagneticField burst reads HXL..ST2 and applies the sensitivity
// adjustment and scale resolution. The data is little endian.
func (s *MPU9250) UpdateMagneticField(ctx context.Context) error {
	if s.state != StateReady {
		return ErrNotReady
	}
	data, err := s.mag.ReadBlock(ctx, regMagHXL, magDataLength)
	if err != nil {
		return fmt.Errorf("ak8963: could not read measurement: %w", err)
	}
	if len(data) < magDataLength {
		return fmt.Errorf("ak8963: could not read measurement: %w", &imu.TransportError{
			Op: "block read", Bus: s.config.Bus, Address: s.config.MagAddress, Register: regMagHXL,
			Err: fmt.Errorf("%w: got %d of %d bytes", imu.ErrShortRead, len(data), magDataLength),
		})
	}
	s.field = MagneticField{
		X: float64(decode16(data[0], data[1])) * s.sensitivity.X * s.scale,
		Y: float64(decode16(data[2], data[3])) * s.sensitivity.Y * s.scale,
		Z: float64(decode16(data[4], data[5])) * s.sensitivity.Z * s.scale,
	}
	return nil
}

func (s *MPU9250) Acceleration() Acceleration {
	return s.accel
}

func (s *MPU9250) MagneticField() MagneticField {
	return s.field
}

func (s *MPU9250) Sensitivity() AxisSensitivity {
	return s.sensitivity
}

func (s *MPU9250) State() State {
	return s.state
}

func (s *MPU9250) Config() Config {
	return s.config
}

// Close releases both device handles. The driver cannot be used afterwards.
func (s *MPU9250) Close() error {
	var errs []error
	if s.mag != nil {
		errs = append(errs, s.mag.Close())
		s.mag = nil
	}
	if s.mpu != nil {
		errs = append(errs, s.mpu.Close())
		s.mpu = nil
	}
	s.state = StateClosed
	return errors.Join(errs...)
}

func axisName(i int) string {
	return [3]string{"x", "y", "z"}[i]
}
