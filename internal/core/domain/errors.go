// Package domain defines the core domain models for VeilDir.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "VD-DIR-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Directory Cache Errors (DIR)
// ============================================================================

var (
	// ErrDocumentNotFound indicates the requested directory document was not found.
	ErrDocumentNotFound = NewDomainError("VD-DIR-4040", "directory document not found")

	// ErrCacheCorrupted indicates a stored record could not be decoded.
	//
	// Corrupted cache entries are reported loudly rather than silently
	// skipped so operators notice a damaged store.
	ErrCacheCorrupted = NewDomainError("VD-DIR-5001", "cache record corrupted")

	// ErrBadDigest indicates a stored digest field failed strict hex decoding.
	ErrBadDigest = NewDomainError("VD-DIR-5002", "malformed stored digest")

	// ErrBadLifetime indicates a stored consensus lifetime is not well ordered.
	ErrBadLifetime = NewDomainError("VD-DIR-5003", "malformed consensus lifetime")
)

// ============================================================================
// Persistence Errors (STOR)
// ============================================================================

var (
	// ErrReadOnly indicates a write was attempted without holding the store lock.
	ErrReadOnly = NewDomainError("VD-STOR-4030", "store is read-only: lock not held")

	// ErrBackend indicates the underlying key-value backend failed.
	ErrBackend = NewDomainError("VD-STOR-5000", "storage backend error")

	// ErrLockConflict indicates the store lock is held by another instance.
	ErrLockConflict = NewDomainError("VD-STOR-4090", "store lock held elsewhere")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("VD-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("VD-ARG-1002", "missing required argument")
)
