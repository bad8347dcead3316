package mpu9250

import "context"

// AccelerationBehaviorFunc produces the next acceleration reading or an error.
type AccelerationBehaviorFunc func(ctx context.Context) (Acceleration, error)

// MagneticFieldBehaviorFunc produces the next magnetic field reading or an error.
type MagneticFieldBehaviorFunc func(ctx context.Context) (MagneticField, error)

// MockSensor mimics the MPU9250 update/accessor surface without hardware.
// Like the driver, a failed update keeps the previous cached value.
//
// Example usage:
//
//	sensor := NewMockSensor(
//		func(ctx context.Context) (Acceleration, error) { return Acceleration{Z: 16384}, nil },
//		func(ctx context.Context) (MagneticField, error) { return MagneticField{X: 22.5}, nil },
//	)
type MockSensor struct {
	accelBehavior AccelerationBehaviorFunc
	magBehavior   MagneticFieldBehaviorFunc
	accel         Acceleration
	field         MagneticField
}

func NewMockSensor(accel AccelerationBehaviorFunc, mag MagneticFieldBehaviorFunc) *MockSensor {
	return &MockSensor{
		accelBehavior: accel,
		magBehavior:   mag,
	}
}

func (m *MockSensor) UpdateAcceleration(ctx context.Context) error {
	a, err := m.accelBehavior(ctx)
	if err != nil {
		return err
	}
	m.accel = a
	return nil
}

func (m *MockSensor) UpdateMagneticField(ctx context.Context) error {
	f, err := m.magBehavior(ctx)
	if err != nil {
		return err
	}
	m.field = f
	return nil
}

func (m *MockSensor) Acceleration() Acceleration {
	return m.accel
}

func (m *MockSensor) MagneticField() MagneticField {
	return m.field
}
