package session

import (
	"errors"
	"fmt"
)

// Common error types for the session engine. The core taxonomy
// (domain.ErrNoWordsAvailable, domain.ErrStaleSessionAction,
// domain.ErrStoreUnavailable) is returned as is or wrapped in a ServiceError.
var (
	// ErrSessionNotFound indicates the handle is unknown or its session was swept.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidDuration indicates a blitz duration that is not positive.
	ErrInvalidDuration = errors.New("blitz duration must be positive")

	// ErrInvalidQuestionCount indicates a quiz question count that is not positive.
	ErrInvalidQuestionCount = errors.New("question count must be positive")

	// ErrEngineClosed indicates the engine no longer accepts sessions.
	ErrEngineClosed = errors.New("session engine is closed")
)

// ServiceError wraps errors from the session engine with the operation that
// failed, so callers can use errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "next_question", "submit_answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
