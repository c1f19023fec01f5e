// Package errors provides custom error types for the marketsync system.
// These errors enable programmatic error checking across the sync pipeline,
// in particular the retryability decisions made by the dispatcher.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the marketsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that a marketplace rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrSourceUnavailable indicates that a catalog source is temporarily unavailable
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrCredentialRequired indicates that a credential is required but not provided
	ErrCredentialRequired = errors.New("credential required")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// FetchError indicates a catalog source was unreachable or returned a
// malformed response. A cycle that hits one aborts early; the scheduler
// still reschedules.
type FetchError struct {
	Source  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("fetch from %s failed: %s", e.Source, e.Message)
	}
	return fmt.Sprintf("fetch from %s failed: %v", e.Source, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(source string, err error) *FetchError {
	return &FetchError{Source: source, Err: err}
}

// DispatchError indicates an outbound batch exhausted its retries or hit a
// terminal client error. It is recorded per batch and never aborts the
// remaining batches.
type DispatchError struct {
	Target     string
	Batch      int
	Attempts   int
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *DispatchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dispatch to %s failed for batch %d after %d attempt(s) (status %d): %v",
			e.Target, e.Batch, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("dispatch to %s failed for batch %d after %d attempt(s): %v",
		e.Target, e.Batch, e.Attempts, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents an error response from a source or marketplace API
type APIError struct {
	Source     string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support. Status 429 maps to ErrRateLimited and
// 5xx to ErrSourceUnavailable; both drive the dispatcher's retry decision.
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrSourceUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(source string, statusCode int, message string) *APIError {
	return &APIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
	}
}

// AuthenticationError represents an authentication failure against a source
type AuthenticationError struct {
	Source  string
	Method  string // "api_key", "token", "bearer"
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Source, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrCredentialRequired
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml"
	Subject string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("parse error in %s %s: %s", e.Format, e.Subject, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// StoreError represents an error from the persistent store
type StoreError struct {
	Operation string // "upsert", "find", "log"
	Message   string
	Err       error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsSourceUnavailable checks if an error indicates source unavailability
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsRetryable reports whether an outbound call error is worth retrying:
// rate limiting and server errors are, everything else is terminal.
func IsRetryable(err error) bool {
	return IsRateLimited(err) || IsSourceUnavailable(err)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapParse wraps an error as a ParseError
func WrapParse(format, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, Subject: subject, Message: err.Error(), Err: err}
}

// WrapFetch wraps an error as a FetchError
func WrapFetch(source string, err error) error {
	if err == nil {
		return nil
	}
	return NewFetchError(source, err)
}

// WrapStore wraps an error as a StoreError
func WrapStore(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Operation: operation, Message: err.Error(), Err: err}
}
