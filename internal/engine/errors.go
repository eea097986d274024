package engine

import (
	"errors"
	"fmt"
)

// Error is the typed error for every failure the lifecycle engine reports.
//
// Callers are expected to treat CONFLICT as retryable and everything else as
// terminal for the operation. Persistence failures wrap the underlying port
// error so errors.Is/As keep working through the taxonomy.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// EntityType and ID identify the affected aggregate where known.
	EntityType string
	ID         int64

	// TenantID identifies the affected partition where known.
	TenantID string

	// Err is the wrapped cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates no entity matches the given identifier.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeValidation indicates a state does not satisfy its descriptor.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeConflict indicates a lost concurrent race or an unresolvable
	// order-key collision. Retryable.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodePersistence indicates a port I/O failure.
	ErrCodePersistence ErrorCode = "PERSISTENCE"

	// ErrCodeConfiguration indicates a missing type or tenant registration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.EntityType != "" && e.ID > 0:
		return fmt.Sprintf("%s: %s (%s id=%d tenant=%s)", e.Code, e.Message, e.EntityType, e.ID, e.TenantID)
	case e.EntityType != "":
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.EntityType)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NOT_FOUND engine error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsValidation reports whether err is a VALIDATION engine error.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsConflict reports whether err is a CONFLICT engine error.
func IsConflict(err error) bool { return hasCode(err, ErrCodeConflict) }

// IsPersistence reports whether err is a PERSISTENCE engine error.
func IsPersistence(err error) bool { return hasCode(err, ErrCodePersistence) }

// IsConfiguration reports whether err is a CONFIGURATION engine error.
func IsConfiguration(err error) bool { return hasCode(err, ErrCodeConfiguration) }

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func notFoundError(entityType string, id int64, tenant string) *Error {
	return &Error{
		Code:       ErrCodeNotFound,
		Message:    "no entity matches the given id",
		EntityType: entityType,
		ID:         id,
		TenantID:   tenant,
	}
}

func validationError(entityType, msg string) *Error {
	return &Error{
		Code:       ErrCodeValidation,
		Message:    msg,
		EntityType: entityType,
	}
}

func conflictError(entityType string, id int64, tenant, msg string, cause error) *Error {
	return &Error{
		Code:       ErrCodeConflict,
		Message:    msg,
		EntityType: entityType,
		ID:         id,
		TenantID:   tenant,
		Err:        cause,
	}
}

func persistenceError(entityType string, id int64, tenant string, cause error) *Error {
	return &Error{
		Code:       ErrCodePersistence,
		Message:    "persistence port failure",
		EntityType: entityType,
		ID:         id,
		TenantID:   tenant,
		Err:        cause,
	}
}

func configurationError(msg string) *Error {
	return &Error{
		Code:    ErrCodeConfiguration,
		Message: msg,
	}
}
