package mpu9250

import (
	"errors"
	"fmt"
)

var ErrNotReady = errors.New("mpu9250: driver not initialized or closed")

// State tracks the one-shot initialization sequence. The driver only moves forward.
type State int

const (
	StateUnconfigured State = iota
	StatePassthroughEnabled
	StateMagPoweredDown
	StateFuseROMRead
	StateSensitivityCaptured
	StateMagPoweredDownAgain
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StatePassthroughEnabled:
		return "passthrough-enabled"
	case StateMagPoweredDown:
		return "mag-powered-down"
	case StateFuseROMRead:
		return "fuse-rom-read"
	case StateSensitivityCaptured:
		return "sensitivity-captured"
	case StateMagPoweredDownAgain:
		return "mag-powered-down-again"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// InitializationError reports a failed setup transaction. Stage is the last
// state the driver reached before the failure.
type InitializationError struct {
	Stage State
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("mpu9250: initialization failed in %s stage: %v", e.Stage, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}
