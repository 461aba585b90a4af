package scpi

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection indicates that the transport could not be opened.
	ErrConnection = errors.New("scpi: connection failed")

	// ErrNotConnected indicates an operation attempted on a closed session.
	ErrNotConnected = errors.New("scpi: not connected")

	// ErrCommunication indicates that sending or receiving failed at the transport level.
	ErrCommunication = errors.New("scpi: communication failure")

	// ErrTimeout indicates that the device did not answer a query within the session timeout.
	ErrTimeout = errors.New("scpi: response timeout")

	// ErrDevice indicates that the device answered a query with the "ERR" sentinel.
	ErrDevice = errors.New("scpi: device returned error")

	// ErrUnsupportedDevice indicates that identity verification failed.
	ErrUnsupportedDevice = errors.New("scpi: unsupported device")
)

// CommandError reports the command whose write or query failed.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("scpi: command %q: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UnsupportedDeviceError reports a failed identity verification.
//
// Identity holds the raw identity response, empty when the identity query
// itself failed; Err holds that failure.
type UnsupportedDeviceError struct {
	Identity string
	Err      error
}

func (e *UnsupportedDeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: identity query failed: %v", ErrUnsupportedDevice, e.Err)
	}

	return fmt.Sprintf("%v: %q", ErrUnsupportedDevice, e.Identity)
}

func (e *UnsupportedDeviceError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnsupportedDevice, e.Err}
	}

	return []error{ErrUnsupportedDevice}
}

// IsTimeout reports whether err is a query timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
