package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced board or task does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the actor has no rights on the task's board.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a concurrent writer invalidated the column update.
	// Safe to retry against fresh state.
	ErrConflict = errors.New("concurrency conflict")
)

// ValidationError reports a field constraint violation. Terminal for the request.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// TransientError wraps a storage failure that may succeed on retry.
type TransientError struct {
	Err error
}

func (e TransientError) Error() string {
	return "transient storage error: " + e.Err.Error()
}

func (e TransientError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry the failed mutation.
func Retryable(err error) bool {
	var te TransientError
	return errors.Is(err, ErrConflict) || errors.As(err, &te)
}
