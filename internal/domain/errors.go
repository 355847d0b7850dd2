// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is zero or negative.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyText is returned when the source or target text of a word is blank.
	ErrEmptyText = errors.New("word text cannot be empty")

	// ErrNoWordsAvailable is returned when a scope has no eligible words.
	// It is terminal for the session that hit it and is not retried.
	ErrNoWordsAvailable = errors.New("no words available for review")

	// ErrStaleSessionAction is returned for actions addressed to a session that has
	// already finished, expired or advanced past the addressed question.
	// Callers acknowledge it softly; it never changes session state.
	ErrStaleSessionAction = errors.New("stale session action")

	// ErrStoreUnavailable wraps any repository failure surfaced by the engine.
	// Session state is left unchanged, so the caller may retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvariantViolation marks data that breaks a domain invariant,
	// such as a negative mastery level. It indicates a defect, not a user error.
	ErrInvariantViolation = errors.New("invariant violation")
)
