// Package scsi builds the command descriptor blocks used to read audio
// from an optical drive and decodes the drive's replies.
package scsi

import (
	"context"
	"fmt"
)

// Operation codes.
const (
	OpTestUnitReady = 0x00
	OpRequestSense  = 0x03
	OpStartStopUnit = 0x1B
	OpReadTOC       = 0x43
	OpReadCD        = 0xBE
	OpReadCDDA      = 0xD8 // vendor specific
)

// Status byte values.
const (
	StatusGood           = 0x00
	StatusCheckCondition = 0x02
	StatusBusy           = 0x08
)

// Sense keys.
const (
	SenseNoSense        = 0x00
	SenseNotReady       = 0x02
	SenseMediumError    = 0x03
	SenseHardwareError  = 0x04
	SenseIllegalRequest = 0x05
	SenseUnitAttention  = 0x06
	SenseAbortedCommand = 0x0B
)

// Additional sense codes.
const (
	ASCInvalidOpcode     = 0x20
	ASCLBAOutOfRange     = 0x21
	ASCInvalidField      = 0x24
	ASCMediumNotPresent  = 0x3A
	ASCUnrecoveredRead   = 0x11
	ASCIncompatibleMedia = 0x30
)

// CDB is a command descriptor block.
type CDB []byte

// Op returns the operation code.
func (c CDB) Op() byte {
	if len(c) == 0 {
		return 0
	}
	return c[0]
}

func (c CDB) String() string {
	return fmt.Sprintf("% x", []byte(c))
}

// A Device executes commands. Data is the transfer buffer for
// data-in commands; Do returns how many bytes of it the device filled.
// A failed command returns an *Error.
type Device interface {
	Do(ctx context.Context, cdb CDB, data []byte) (int, error)
}

// DeviceFunc adapts a function to the Device interface.
type DeviceFunc func(ctx context.Context, cdb CDB, data []byte) (int, error)

func (f DeviceFunc) Do(ctx context.Context, cdb CDB, data []byte) (int, error) {
	return f(ctx, cdb, data)
}
