package pkg

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error taxonomy for the workflow core. Backend errors are recoverable inside
// a stage (one fallback retry); everything else halts the session.

var (
	// ErrSessionNotFound is returned when a session id has no durable record.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionBusy is returned when a session id already has an active
	// execution; sessions are single-writer.
	ErrSessionBusy = errors.New("session already executing")
	// ErrLongTermNotFound is the not-found signal for the long-term tier.
	ErrLongTermNotFound = errors.New("long-term entry not found")
)

// MissingInputError reports declared stage inputs absent from the context.
// Fatal for the session; prior history is retained untouched.
type MissingInputError struct {
	Stage   string
	Missing []string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("stage %s: missing inputs: %s", e.Stage, strings.Join(e.Missing, ", "))
}

// ValidationError reports a stage output that violates its declared output
// contract (wrong key set, wrong kind, or a context key collision). Fatal.
type ValidationError struct {
	Stage  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stage %s: output validation failed: %s", e.Stage, e.Reason)
}

// BackendUnavailableError reports a live backend that could not serve a call.
// Recovered locally via the stub fallback; never escapes the stage boundary.
type BackendUnavailableError struct {
	Backend string
	Cause   error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend %s unavailable: %v", e.Backend, e.Cause)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Cause }

// BackendTimeoutError reports a live backend call that exceeded the
// per-stage timeout. Recovered the same way as unavailability.
type BackendTimeoutError struct {
	Backend string
	Timeout time.Duration
}

func (e *BackendTimeoutError) Error() string {
	return fmt.Sprintf("backend %s timed out after %s", e.Backend, e.Timeout)
}

// StageExecutionError is the terminal form of a stage failure: either a
// non-backend fault inside the stage, or a backend fault whose fallback
// retry also failed.
type StageExecutionError struct {
	Stage string
	Cause error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Cause)
}

func (e *StageExecutionError) Unwrap() error { return e.Cause }

// SessionPersistenceError reports a durable write that failed even after the
// store's single retry. Callers must treat the result as possibly not
// durable, whatever the session status says.
type SessionPersistenceError struct {
	Op    string
	Cause error
}

func (e *SessionPersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Cause)
}

func (e *SessionPersistenceError) Unwrap() error { return e.Cause }

// IsRecoverableBackendError reports whether err is a backend fault that the
// engine's one-retry fallback policy covers.
func IsRecoverableBackendError(err error) bool {
	var unavailable *BackendUnavailableError
	var timeout *BackendTimeoutError
	return errors.As(err, &unavailable) || errors.As(err, &timeout)
}
