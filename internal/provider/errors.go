package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by provider clients.
var (
	// ErrNotFound indicates the identifier or query had no record.
	ErrNotFound = errors.New("record not found")

	// ErrRateLimited indicates the provider's rate limit was exceeded.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrNetworkError indicates a connectivity problem.
	ErrNetworkError = errors.New("network error communicating with provider")

	// ErrInvalidResponse indicates an unexpected provider response.
	ErrInvalidResponse = errors.New("invalid response from provider")
)

// APIError represents an HTTP-level error from a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404 || apiErr.StatusCode == 410
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// CheckHTTPErrors returns an error if the response indicates a problem.
// Shared by all provider clients.
func CheckHTTPErrors(name string, resp *http.Response) error {
	switch {
	case resp.StatusCode == 404 || resp.StatusCode == 410:
		return fmt.Errorf("%w: %s status %d", ErrNotFound, name, resp.StatusCode)
	case resp.StatusCode == 429:
		return fmt.Errorf("%w: %s status %d", ErrRateLimited, name, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &APIError{
			Provider:   name,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}
	return nil
}
