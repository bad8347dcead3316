package i2c

import (
	"context"
	"fmt"

	"github.com/mklimuk/imu"
)

var _ imu.Transport = &RegisterTransport{}

// RegisterTransport provides register level access on top of a raw address
// level bus such as GenericBus or the MCP2221 adapter. A register read is a
// pointer write followed by a separate read transaction.
type RegisterTransport struct {
	bus    imu.I2CBus
	number int
	probe  bool
}

type RegisterTransportOpt func(*RegisterTransport)

// WithoutProbe skips the one byte presence check performed by Open.
func WithoutProbe() RegisterTransportOpt {
	return func(t *RegisterTransport) {
		t.probe = false
	}
}

// NewRegisterTransport binds the raw bus to the given bus number.
func NewRegisterTransport(bus imu.I2CBus, number int, opts ...RegisterTransportOpt) *RegisterTransport {
	t := &RegisterTransport{
		bus:    bus,
		number: number,
		probe:  true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *RegisterTransport) Open(ctx context.Context, bus int, address byte) (imu.Handle, error) {
	if bus != t.number {
		return nil, &imu.TransportError{Op: "open", Bus: bus, Address: address, Err: fmt.Errorf("transport is bound to bus %d", t.number)}
	}
	if t.probe {
		buf := make([]byte, 1)
		if err := t.bus.ReadFromAddr(ctx, address, buf); err != nil {
			return nil, &imu.TransportError{Op: "open", Bus: bus, Address: address, Err: err}
		}
	}
	return &registerHandle{bus: t.bus, number: bus, address: address}, nil
}

type registerHandle struct {
	bus     imu.I2CBus
	number  int
	address byte
	closed  bool
}

func (h *registerHandle) WriteRegister(ctx context.Context, reg, value byte) error {
	if h.closed {
		return h.fail("write", reg, imu.ErrClosed)
	}
	if err := h.bus.WriteToAddr(ctx, h.address, []byte{reg, value}); err != nil {
		return h.fail("write", reg, err)
	}
	return nil
}

func (h *registerHandle) ReadRegister(ctx context.Context, reg byte) (byte, error) {
	data, err := h.read(ctx, "read", reg, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (h *registerHandle) ReadBlock(ctx context.Context, reg byte, length int) ([]byte, error) {
	return h.read(ctx, "block read", reg, length)
}

func (h *registerHandle) read(ctx context.Context, op string, reg byte, length int) ([]byte, error) {
	if h.closed {
		return nil, h.fail(op, reg, imu.ErrClosed)
	}
	if length <= 0 {
		return nil, h.fail(op, reg, fmt.Errorf("invalid length %d", length))
	}
	if err := h.bus.WriteToAddr(ctx, h.address, []byte{reg}); err != nil {
		return nil, h.fail(op, reg, fmt.Errorf("could not set register pointer: %w", err))
	}
	buf := make([]byte, length)
	if err := h.bus.ReadFromAddr(ctx, h.address, buf); err != nil {
		return nil, h.fail(op, reg, err)
	}
	return buf, nil
}

func (h *registerHandle) fail(op string, reg byte, err error) error {
	return &imu.TransportError{Op: op, Bus: h.number, Address: h.address, Register: reg, Err: err}
}

// Close detaches the handle. The underlying bus stays open; it belongs to the caller.
func (h *registerHandle) Close() error {
	h.closed = true
	return nil
}
