package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/imu"
)

// MockI2CBus is a testify mock of imu.I2CBus. A []byte first return value
// of ReadFromAddr is copied into the caller's buffer.
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestRegisterTransport_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("probe ok", func(t *testing.T) {
		bus := new(MockI2CBus)
		bus.On("ReadFromAddr", mock.Anything, byte(0x68), mock.Anything).Return([]byte{0x00}, nil).Once()
		h, err := NewRegisterTransport(bus, 1).Open(ctx, 1, 0x68)
		require.NoError(t, err)
		assert.NotNil(t, h)
		bus.AssertExpectations(t)
	})

	t.Run("no answer", func(t *testing.T) {
		bus := new(MockI2CBus)
		bus.On("ReadFromAddr", mock.Anything, byte(0x0C), mock.Anything).Return(nil, errors.New("nack")).Once()
		_, err := NewRegisterTransport(bus, 1).Open(ctx, 1, 0x0C)
		require.Error(t, err)
		assert.ErrorIs(t, err, imu.ErrTransport)
		var terr *imu.TransportError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "open", terr.Op)
		assert.Equal(t, byte(0x0C), terr.Address)
	})

	t.Run("wrong bus", func(t *testing.T) {
		bus := new(MockI2CBus)
		_, err := NewRegisterTransport(bus, 1).Open(ctx, 2, 0x68)
		assert.ErrorIs(t, err, imu.ErrTransport)
		bus.AssertNotCalled(t, "ReadFromAddr", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("without probe", func(t *testing.T) {
		bus := new(MockI2CBus)
		_, err := NewRegisterTransport(bus, 0, WithoutProbe()).Open(ctx, 0, 0x68)
		assert.NoError(t, err)
		bus.AssertNotCalled(t, "ReadFromAddr", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRegisterHandle_WriteRegister(t *testing.T) {
	ctx := context.Background()
	bus := new(MockI2CBus)
	h, err := NewRegisterTransport(bus, 1, WithoutProbe()).Open(ctx, 1, 0x68)
	require.NoError(t, err)

	bus.On("WriteToAddr", mock.Anything, byte(0x68), []byte{0x6A, 0x00}).Return(nil).Once()
	assert.NoError(t, h.WriteRegister(ctx, 0x6A, 0x00))

	bus.On("WriteToAddr", mock.Anything, byte(0x68), []byte{0x37, 0x02}).Return(errors.New("nack")).Once()
	err = h.WriteRegister(ctx, 0x37, 0x02)
	var terr *imu.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "write", terr.Op)
	assert.Equal(t, byte(0x37), terr.Register)
	bus.AssertExpectations(t)
}

func TestRegisterHandle_Read(t *testing.T) {
	ctx := context.Background()
	bus := new(MockI2CBus)
	h, err := NewRegisterTransport(bus, 1, WithoutProbe()).Open(ctx, 1, 0x0C)
	require.NoError(t, err)

	bus.On("WriteToAddr", mock.Anything, byte(0x0C), []byte{0x10}).Return(nil).Twice()
	bus.On("ReadFromAddr", mock.Anything, byte(0x0C), mock.MatchedBy(func(b []byte) bool { return len(b) == 3 })).
		Return([]byte{0x80, 0x81, 0x82}, nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(0x0C), mock.MatchedBy(func(b []byte) bool { return len(b) == 1 })).
		Return([]byte{0x48}, nil).Once()

	data, err := h.ReadBlock(ctx, 0x10, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x81, 0x82}, data)

	val, err := h.ReadRegister(ctx, 0x10)
	require.NoError(t, err)
	assert.Equal(t, byte(0x48), val)
	bus.AssertExpectations(t)
}

func TestRegisterHandle_ReadErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("pointer write fails", func(t *testing.T) {
		bus := new(MockI2CBus)
		h, _ := NewRegisterTransport(bus, 1, WithoutProbe()).Open(ctx, 1, 0x0C)
		bus.On("WriteToAddr", mock.Anything, byte(0x0C), []byte{0x03}).Return(imu.ErrBusBusy).Once()
		_, err := h.ReadBlock(ctx, 0x03, 7)
		assert.ErrorIs(t, err, imu.ErrTransport)
		assert.ErrorIs(t, err, imu.ErrBusBusy)
		bus.AssertNotCalled(t, "ReadFromAddr", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("read fails", func(t *testing.T) {
		bus := new(MockI2CBus)
		h, _ := NewRegisterTransport(bus, 1, WithoutProbe()).Open(ctx, 1, 0x0C)
		bus.On("WriteToAddr", mock.Anything, byte(0x0C), []byte{0x03}).Return(nil).Once()
		bus.On("ReadFromAddr", mock.Anything, byte(0x0C), mock.Anything).Return(nil, errors.New("invalid data size byte")).Once()
		_, err := h.ReadBlock(ctx, 0x03, 7)
		assert.ErrorIs(t, err, imu.ErrTransport)
		assert.Contains(t, err.Error(), "invalid data size byte")
	})

	t.Run("invalid length", func(t *testing.T) {
		bus := new(MockI2CBus)
		h, _ := NewRegisterTransport(bus, 1, WithoutProbe()).Open(ctx, 1, 0x0C)
		_, err := h.ReadBlock(ctx, 0x03, 0)
		assert.ErrorIs(t, err, imu.ErrTransport)
	})

	t.Run("closed", func(t *testing.T) {
		bus := new(MockI2CBus)
		h, _ := NewRegisterTransport(bus, 1, WithoutProbe()).Open(ctx, 1, 0x0C)
		require.NoError(t, h.Close())
		_, err := h.ReadRegister(ctx, 0x03)
		assert.ErrorIs(t, err, imu.ErrClosed)
		assert.ErrorIs(t, h.WriteRegister(ctx, 0x0A, 0x00), imu.ErrClosed)
		bus.AssertExpectations(t)
	})
}
