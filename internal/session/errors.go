package session

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes lifecycle failures.
type ErrorCode string

const (
	// ErrCodeAlreadyRunning means Start was called while a session runs.
	ErrCodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"

	// ErrCodeConnectFailed means the host could not be reached after retries.
	ErrCodeConnectFailed ErrorCode = "CONNECT_FAILED"

	// ErrCodeSetupFailed means registering telemetry definitions failed.
	ErrCodeSetupFailed ErrorCode = "SETUP_FAILED"
)

// User-visible messages carried by simconnect-error events.
const (
	msgAlreadyRunning = "SimConnect is already running"
	msgConnectFailed  = "Failed to connect to MSFS. Please ensure the simulator is running and try again."
	msgSetupFailed    = "Failed to initialize SimConnect data: %v"
)

// Error is a lifecycle failure surfaced to the UI.
type Error struct {
	Code    ErrorCode
	Message string // shown to the user
	Session string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Session != "" {
		return fmt.Sprintf("%s: %s (session=%s)", e.Code, e.Message, e.Session)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsAlreadyRunning reports whether err is an ALREADY_RUNNING error.
func IsAlreadyRunning(err error) bool { return hasCode(err, ErrCodeAlreadyRunning) }

// IsConnectError reports whether err is a CONNECT_FAILED error.
func IsConnectError(err error) bool { return hasCode(err, ErrCodeConnectFailed) }

// IsSetupError reports whether err is a SETUP_FAILED error.
func IsSetupError(err error) bool { return hasCode(err, ErrCodeSetupFailed) }

func newSetupError(id string, err error) *Error {
	return &Error{
		Code:    ErrCodeSetupFailed,
		Message: fmt.Sprintf(msgSetupFailed, err),
		Session: id,
		Err:     err,
	}
}
