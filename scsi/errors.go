package scsi

import (
	"errors"
	"fmt"
)

// Error is a command that completed with a non-good status.
type Error struct {
	Op     byte
	Status byte
	Sense  []byte // fixed format sense data, if any
}

func (e *Error) Error() string {
	if len(e.Sense) == 0 {
		return fmt.Sprintf("scsi: command %#02x failed with status %#02x", e.Op, e.Status)
	}
	return fmt.Sprintf("scsi: command %#02x failed: %s (asc %#02x ascq %#02x)", e.Op, senseName(e.SenseKey()), e.ASC(), e.ASCQ())
}

func (e *Error) SenseKey() byte {
	if len(e.Sense) < 3 {
		return SenseNoSense
	}
	return e.Sense[2] & 0x0f
}

func (e *Error) ASC() byte {
	if len(e.Sense) < 13 {
		return 0
	}
	return e.Sense[12]
}

func (e *Error) ASCQ() byte {
	if len(e.Sense) < 14 {
		return 0
	}
	return e.Sense[13]
}

func senseName(key byte) string {
	switch key {
	case SenseNoSense:
		return "no sense"
	case SenseNotReady:
		return "not ready"
	case SenseMediumError:
		return "medium error"
	case SenseHardwareError:
		return "hardware error"
	case SenseIllegalRequest:
		return "illegal request"
	case SenseUnitAttention:
		return "unit attention"
	case SenseAbortedCommand:
		return "aborted command"
	default:
		return fmt.Sprintf("sense key %#02x", key)
	}
}

// SenseData builds fixed format sense data.
func SenseData(key, asc, ascq byte) []byte {
	s := make([]byte, 18)
	s[0] = 0x70 // current error, fixed format
	s[2] = key
	s[7] = 10 // additional length
	s[12] = asc
	s[13] = ascq
	return s
}

// CheckCondition returns the error a device reports for a failed command.
func CheckCondition(op, key, asc, ascq byte) *Error {
	return &Error{Op: op, Status: StatusCheckCondition, Sense: SenseData(key, asc, ascq)}
}

// IsSense reports whether err is a SCSI error with the given sense key and
// additional sense code.
func IsSense(err error, key, asc byte) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.SenseKey() == key && se.ASC() == asc
}

var ErrShortResponse = errors.New("scsi: response too short")
