// internal/protocol/errors.go
package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrConnectFailed       = errors.New("gateway connection failed")
	ErrConnectTimeout      = errors.New("gateway connection timed out")
	ErrRequestTimeout      = errors.New("gateway request timed out")
	ErrUnsupportedProtocol = errors.New("unsupported gateway protocol")
	ErrInvalidResponse     = errors.New("invalid gateway response")
)

// ConnectError carries the operator-facing message of a failed connect.
// It matches ErrConnectFailed and its cause with errors.Is.
type ConnectError struct {
	Message string
	Err     error
}

func (e *ConnectError) Error() string {
	return e.Message
}

func (e *ConnectError) Unwrap() []error {
	return []error{ErrConnectFailed, e.Err}
}

func connectError(cause error, format string, args ...interface{}) error {
	return &ConnectError{
		Message: fmt.Sprintf(format, args...) + ": " + cause.Error(),
		Err:     cause,
	}
}
