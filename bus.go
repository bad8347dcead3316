package imu

import (
	"context"
	"errors"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

var (
	ErrTransport = errors.New("transport error")
	ErrShortRead = errors.New("short read")
	ErrClosed    = errors.New("handle closed")
)

type BusReader interface {
	Read(ctx context.Context, buffer []byte) error
}

type BusWriter interface {
	Write(ctx context.Context, buffer []byte) error
}

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is a raw, address level bus: every call is a complete I2C transaction.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// Transport opens register level sessions to devices sitting on a numbered bus.
type Transport interface {
	Open(ctx context.Context, bus int, address byte) (Handle, error)
}

// Handle is an open session with a single device address. Implementations do not retry.
type Handle interface {
	WriteRegister(ctx context.Context, reg, value byte) error
	ReadRegister(ctx context.Context, reg byte) (byte, error)
	// ReadBlock returns exactly length bytes starting at reg or fails.
	ReadBlock(ctx context.Context, reg byte, length int) ([]byte, error)
	Close() error
}

// TransportError describes a failed bus transaction. errors.Is(err, ErrTransport)
// holds for every TransportError.
type TransportError struct {
	Op       string
	Bus      int
	Address  byte
	Register byte
	Err      error
}

func (e *TransportError) Error() string {
	if e.Op == "open" {
		return fmt.Sprintf("i2c %s bus %d addr 0x%02x: %v", e.Op, e.Bus, e.Address, e.Err)
	}
	return fmt.Sprintf("i2c %s bus %d addr 0x%02x reg 0x%02x: %v", e.Op, e.Bus, e.Address, e.Register, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
