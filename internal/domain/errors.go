package domain

import (
	"errors"
	"fmt"
)

// Caller-visible failure classes. Services wrap these; handlers map them onto
// HTTP status codes with errors.Is.
var (
	// ErrValidation marks malformed or incomplete input (no state change)
	ErrValidation = errors.New("validation failed")
	// ErrPortfolioNotFound marks a reference to an absent portfolio
	ErrPortfolioNotFound = errors.New("portfolio not found")
	// ErrTickerNotFound marks a symbol with no matching ticker
	ErrTickerNotFound = errors.New("ticker not found")
	// ErrPriceRefreshFailed marks an aborted price refresh (unprocessable)
	ErrPriceRefreshFailed = errors.New("price refresh failed")
)

// ValidationError describes the first invalid field of an input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// HTTPStatusError is returned when an external provider answers with a
// non-success status code
type HTTPStatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsRateLimited reports whether the provider rejected the call with HTTP 429
func (e *HTTPStatusError) IsRateLimited() bool {
	return e.StatusCode == 429
}
