// Package errors defines the categorized error kinds of the indexing
// pipeline and helpers to classify them.
package errors

import (
	"errors"
	"fmt"

	"github.com/auction-indexer/internal/types"
)

// Category represents the category of an indexing error
type Category string

const (
	// CategoryMissingParam means a handler was invoked without a required
	// event parameter; fatal to that single handler invocation only.
	CategoryMissingParam Category = "missing_param"
	// CategoryDecode means log decoding failed; non-fatal, the decoder
	// degrades to raw-payload capture.
	CategoryDecode Category = "decode"
	// CategoryProvider means the upstream log provider failed; fatal to the
	// current chain's iteration only.
	CategoryProvider Category = "provider"
	// CategoryConflict means an idempotent insert hit an existing unique
	// key; expected outcome, treated as success by callers.
	CategoryConflict Category = "conflict"
	// CategoryDatabase represents ledger store errors
	CategoryDatabase Category = "database"
	// CategorySystem represents everything else
	CategorySystem Category = "system"
)

// CategorizedError carries a category, stable code and optional cause
type CategorizedError struct {
	Category Category
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// NewMissingRequiredParam creates an error for a handler invoked without a
// required event parameter. State must remain unchanged for that event.
func NewMissingRequiredParam(event, param string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryMissingParam,
		Code:     "MISSING_REQUIRED_PARAM",
		Message:  fmt.Sprintf("event %s is missing required parameter %q", event, param),
		Details: map[string]interface{}{
			"event":     event,
			"parameter": param,
		},
	}
}

// NewDecodeFailure creates a decode error for a single log
func NewDecodeFailure(eventName string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryDecode,
		Code:     "DECODE_FAILURE",
		Message:  fmt.Sprintf("failed to decode %s log", eventName),
		Cause:    cause,
		Details: map[string]interface{}{
			"event": eventName,
		},
	}
}

// NewProviderError creates an upstream provider error for a chain
func NewProviderError(chain types.ChainID, op string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryProvider,
		Code:     "PROVIDER_ERROR",
		Message:  fmt.Sprintf("upstream provider error on chain %s during %s", chain, op),
		Cause:    cause,
		Details: map[string]interface{}{
			"chain":     string(chain),
			"operation": op,
		},
	}
}

// NewPersistenceConflict creates a unique-key conflict marker. Idempotent
// inserts surface this as the expected no-op outcome, not a failure.
func NewPersistenceConflict(resource, key string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryConflict,
		Code:     "PERSISTENCE_CONFLICT",
		Message:  fmt.Sprintf("%s already exists: %s", resource, key),
		Details: map[string]interface{}{
			"resource": resource,
			"key":      key,
		},
	}
}

// NewDatabaseError creates a ledger store error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryDatabase,
		Code:     "DATABASE_ERROR",
		Message:  fmt.Sprintf("database error during %s", operation),
		Cause:    cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInternalError creates a generic system error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategorySystem,
		Code:     "INTERNAL_ERROR",
		Message:  message,
		Cause:    cause,
	}
}

// Categorize returns the CategorizedError in err's chain, or wraps err as a
// system error.
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}
	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}
	return NewInternalError("unexpected error", err)
}

// IsCategory reports whether err belongs to the given category
func IsCategory(err error, category Category) bool {
	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category == category
	}
	return false
}

// IsMissingParam reports whether err is a MissingRequiredParam error
func IsMissingParam(err error) bool {
	return IsCategory(err, CategoryMissingParam)
}

// IsProviderError reports whether err is an upstream provider error
func IsProviderError(err error) bool {
	return IsCategory(err, CategoryProvider)
}

// IsConflict reports whether err is a unique-key persistence conflict
func IsConflict(err error) bool {
	return IsCategory(err, CategoryConflict)
}

// IsRetryable determines if an error is worth retrying upstream
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	switch catErr.Category {
	case CategoryProvider, CategoryDatabase:
		return true
	default:
		return false
	}
}
