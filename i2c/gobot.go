package i2c

import (
	"context"
	"fmt"

	gi2c "gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/imu"
)

var _ imu.Transport = &GobotTransport{}

// GobotTransport opens devices through a gobot platform adaptor (raspi, nanopi, ...).
// The adaptor must already be connected.
type GobotTransport struct {
	connector gi2c.Connector
	probe     bool
}

func NewGobotTransport(connector gi2c.Connector) *GobotTransport {
	return &GobotTransport{connector: connector, probe: true}
}

// DefaultBus returns the adaptor's default bus number.
func (t *GobotTransport) DefaultBus() int {
	return t.connector.DefaultI2cBus()
}

func (t *GobotTransport) Open(ctx context.Context, bus int, address byte) (imu.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, &imu.TransportError{Op: "open", Bus: bus, Address: address, Err: err}
	}
	conn, err := t.connector.GetI2cConnection(int(address), bus)
	if err != nil {
		return nil, &imu.TransportError{Op: "open", Bus: bus, Address: address, Err: err}
	}
	if t.probe {
		if _, err := conn.ReadByte(); err != nil {
			_ = conn.Close()
			return nil, &imu.TransportError{Op: "open", Bus: bus, Address: address, Err: err}
		}
	}
	return &gobotHandle{conn: conn, bus: bus, address: address}, nil
}

type gobotHandle struct {
	conn    gi2c.Connection
	bus     int
	address byte
	closed  bool
}

func (h *gobotHandle) WriteRegister(ctx context.Context, reg, value byte) error {
	if err := h.check(ctx, "write", reg); err != nil {
		return err
	}
	if err := h.conn.WriteByteData(reg, value); err != nil {
		return h.fail("write", reg, err)
	}
	return nil
}

func (h *gobotHandle) ReadRegister(ctx context.Context, reg byte) (byte, error) {
	if err := h.check(ctx, "read", reg); err != nil {
		return 0, err
	}
	val, err := h.conn.ReadByteData(reg)
	if err != nil {
		return 0, h.fail("read", reg, err)
	}
	return val, nil
}

func (h *gobotHandle) ReadBlock(ctx context.Context, reg byte, length int) ([]byte, error) {
	if err := h.check(ctx, "block read", reg); err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, h.fail("block read", reg, fmt.Errorf("invalid length %d", length))
	}
	buf := make([]byte, length)
	if err := h.conn.ReadBlockData(reg, buf); err != nil {
		return nil, h.fail("block read", reg, err)
	}
	return buf, nil
}

func (h *gobotHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.conn.Close(); err != nil {
		return h.fail("close", 0, err)
	}
	return nil
}

func (h *gobotHandle) check(ctx context.Context, op string, reg byte) error {
	if h.closed {
		return h.fail(op, reg, imu.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return h.fail(op, reg, err)
	}
	return nil
}

func (h *gobotHandle) fail(op string, reg byte, err error) error {
	return &imu.TransportError{Op: op, Bus: h.bus, Address: h.address, Register: reg, Err: err}
}
