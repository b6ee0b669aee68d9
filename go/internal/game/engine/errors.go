package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSessionAlreadyActive = errors.New("a session is already active")
	ErrNoActiveSession      = errors.New("no active session")
)

// ConflictError is returned when a start races an active session. EndsAt
// tells the caller when to retry.
type ConflictError struct {
	SessionID string
	EndsAt    time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s until %s", ErrSessionAlreadyActive, e.EndsAt.Format(time.RFC3339))
}

func (e *ConflictError) Unwrap() error {
	return ErrSessionAlreadyActive
}
