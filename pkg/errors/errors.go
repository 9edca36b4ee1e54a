// Package errors provides common domain error types for the Meetverse services.
//
// This package defines sentinel errors for common domain conditions like "not found"
// or "not configured" that can be used across all packages. Using typed errors enables
// consistent error handling patterns with errors.Is() checks.
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrNotConfigured indicates an external provider is missing credentials
	// and the dependent stage degrades to a no-op.
	ErrNotConfigured = errors.New("provider not configured")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotConfigured reports whether any error in err's chain is ErrNotConfigured.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
