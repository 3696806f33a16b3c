package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the database.
	ErrJobNotFound = errors.New("job not found")

	// ErrNotCancelable is returned when a cancel request arrives after the
	// job passed its last cancellable checkpoint or reached a terminal state.
	ErrNotCancelable = errors.New("job is not cancelable")

	// ErrJobAlreadyClaimed is returned when attempting to claim a job that is
	// no longer queued.
	ErrJobAlreadyClaimed = errors.New("job already claimed or not in queued status")

	// ErrProfileNotFound is returned when a user has not completed onboarding.
	ErrProfileNotFound = errors.New("learner profile not found")

	// ErrTopicNotFound is returned when a journey topic does not exist.
	ErrTopicNotFound = errors.New("journey topic not found")

	// ErrInvalidPayload is returned when a job payload JSON is malformed.
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrJobTimeout is returned when a workflow run exceeds its wall-clock budget.
	ErrJobTimeout = errors.New("job exceeded execution time budget")
)

// ValidationError rejects bad input before any job or workflow starts.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Msg
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Msg)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// RetryableError wraps transient errors that should trigger a queue requeue.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
