package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_UnwrapsToErrValidation(t *testing.T) {
	err := NewValidationError("name", "must not be empty")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "validation failed: name must not be empty", err.Error())

	wrapped := fmt.Errorf("create portfolio: %w", err)
	assert.True(t, errors.Is(wrapped, ErrValidation))

	var ve *ValidationError
	assert.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, "name", ve.Field)
}

func TestValidationError_WithoutField(t *testing.T) {
	err := NewValidationError("", "position list is empty")
	assert.Equal(t, "validation failed: position list is empty", err.Error())
}

func TestHTTPStatusError(t *testing.T) {
	err := &HTTPStatusError{Provider: "finnhub", StatusCode: 429}
	assert.Equal(t, "finnhub returned HTTP 429", err.Error())
	assert.True(t, err.IsRateLimited())

	err = &HTTPStatusError{Provider: "alphavantage", StatusCode: 500, Body: "oops"}
	assert.Equal(t, "alphavantage returned HTTP 500: oops", err.Error())
	assert.False(t, err.IsRateLimited())
}

func TestListing_IsActive(t *testing.T) {
	testCases := []struct {
		status string
		active bool
	}{
		{"Active", true},
		{"active", true},
		{"ACTIVE", true},
		{"Delisted", false},
		{"status", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			assert.Equal(t, tc.active, Listing{Status: tc.status}.IsActive())
		})
	}
}
