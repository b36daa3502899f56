package llm

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("generation API key is not configured")

// SafetyError reports a request blocked by the provider's safety filters.
type SafetyError struct {
	Reason string
}

func (e *SafetyError) Error() string {
	return fmt.Sprintf("generation blocked by safety filter: %s", e.Reason)
}

// APIError reports a non-retryable upstream failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

type rateLimitError struct{}

func (e *rateLimitError) Error() string { return "rate limited" }
