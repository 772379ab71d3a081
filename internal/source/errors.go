package source

import (
	"errors"
	"fmt"

	"github.com/smazurov/ispsrc/internal/device"
)

// Error is a capture failure surfaced to the caller.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeNegotiationFailure      = "NEGOTIATION_FAILURE"
	ErrCodeConfigurationRejected   = "CONFIGURATION_REJECTED"
	ErrCodeAllocationFailure       = "ALLOCATION_FAILURE"
	ErrCodeDriverProtocolViolation = "DRIVER_PROTOCOL_VIOLATION"
	ErrCodeDeviceRemoved           = "DEVICE_REMOVED"
)

// NewError creates a new source error
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrFlushing is returned by Create while the source is unlocked.
var ErrFlushing = device.ErrFlushing

// ErrLatencyUnavailable is returned by QueryLatency when the device is
// closed or has no fixed, nonzero frame rate.
var ErrLatencyUnavailable = errors.New("latency unavailable")

// ErrDeviceRemoved is the cause of a DEVICE_REMOVED error.
var ErrDeviceRemoved = errors.New("device removed")

// ErrorCode returns the code of err, or "" when err is not an *Error.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
