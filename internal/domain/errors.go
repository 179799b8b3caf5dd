// Package domain contains the daily wisdom model and its error taxonomy.
// Domain errors describe workflow failures, not transport failures; adapters map
// them to HTTP status codes or CLI exit messages.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a record or wisdom entry failed validation.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable indicates a required dependency is unavailable.
	ErrUnavailable = errors.New("unavailable")

	// ErrCacheCorrupt indicates a persisted value could not be decoded or is invalid.
	// It is recovered by the cache and never returned to callers of the workflow.
	ErrCacheCorrupt = errors.New("cache entry corrupt")

	// ErrProvider indicates a generative provider call failed.
	ErrProvider = errors.New("provider failed")
)

// NotFoundError carries the entity and key that were missing.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap returns ErrNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error for entity/id.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a validation error that records the rejected value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// UnavailableError reports a dependency that cannot be reached at all,
// e.g. an open circuit breaker in front of a provider.
type UnavailableError struct {
	Service string
	Reason  string
}

func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unavailable", e.Service)
}

// Unwrap returns ErrUnavailable.
func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

// NewUnavailableError creates an unavailable error.
func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// CorruptEntryError describes why a stored value was rejected.
type CorruptEntryError struct {
	Key    string
	Reason string
}

func (e *CorruptEntryError) Error() string {
	return fmt.Sprintf("cache entry %q corrupt: %s", e.Key, e.Reason)
}

// Unwrap returns ErrCacheCorrupt.
func (e *CorruptEntryError) Unwrap() error {
	return ErrCacheCorrupt
}

// NewCorruptEntryError creates a corrupt entry error.
func NewCorruptEntryError(key, reason string) error {
	return &CorruptEntryError{Key: key, Reason: reason}
}

// ProviderError wraps a failure from a generative provider.
// errors.Is matches both ErrProvider and the underlying cause.
type ProviderError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s failed", e.Provider, e.Operation)
	}

	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Operation, e.Err)
}

// Unwrap exposes ErrProvider and the cause.
func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProvider}
	}

	return []error{ErrProvider, e.Err}
}

// NewProviderError creates a provider error. An err that is already a
// ProviderError is returned unchanged.
func NewProviderError(provider, operation string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	return &ProviderError{Provider: provider, Operation: operation, Err: err}
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnavailable reports whether err is an unavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsCacheCorrupt reports whether err is a corrupt cache entry error.
func IsCacheCorrupt(err error) bool {
	return errors.Is(err, ErrCacheCorrupt)
}

// IsProvider reports whether err is a provider failure.
func IsProvider(err error) bool {
	return errors.Is(err, ErrProvider)
}
