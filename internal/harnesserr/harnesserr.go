// Package harnesserr defines the harness's error taxonomy: sentinel values
// for the handful of failure categories that scenario execution and
// reporting need to distinguish between.
package harnesserr

import "errors"

var (
	// ErrConfig marks a malformed or missing configuration value
	// (scenario file, command-line flag, required env var).
	ErrConfig = errors.New("config error")

	// ErrConnection marks a failure to establish or maintain the
	// transport connection to the system under test. Fatal: surfaced to
	// the caller rather than recorded as a failed assertion.
	ErrConnection = errors.New("connection error")

	// ErrTimeout marks an expected, recorded (not raised) timeout —
	// e.g. a tool call that never arrived within its wait window.
	ErrTimeout = errors.New("timeout")

	// ErrTool marks a tool invocation failure. Tool errors are values
	// returned to the caller, never panics.
	ErrTool = errors.New("tool error")

	// ErrDispatch marks a failure to dispatch a timeline action (e.g.
	// an unknown action kind, or a handler that itself failed).
	ErrDispatch = errors.New("dispatch error")
)
