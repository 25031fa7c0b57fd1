package interfaces

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("document not found")

	// ErrConditionFailed is returned by conditional updates (Accept,
	// TryTransition, Debit) when the guard clause did not match. The caller
	// decides whether that means "gone" or "lost the race".
	ErrConditionFailed = errors.New("update condition not met")

	// ErrInsufficientFunds is returned by wallet debits that would drive the
	// balance negative.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
)
