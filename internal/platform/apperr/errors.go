// Package apperr defines the error taxonomy shared by the domain, application and
// transport layers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error category.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindRideNotActive    Kind = "ride_not_active"
	KindNoSeatsAvailable Kind = "no_seats_available"
	KindAlreadyBooked    Kind = "already_booked"
	KindConflict         Kind = "conflict"
	KindAddressNotFound  Kind = "address_not_found"
	KindGeocodeFailed    Kind = "geocode_failed"
	KindStorage          Kind = "storage_error"
	KindInternal         Kind = "internal_error"
)

// Error is a categorized application error.
type Error struct {
	Kind    Kind
	Message string
	// Field and Value identify the offending input for validation errors.
	Field string
	Value any
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NewValidationError reports malformed or missing input.
func NewValidationError(message string) *Error {
	return New(KindInvalidInput, message)
}

// NewFieldError reports an invalid value for a named field.
func NewFieldError(field string, value any, message string) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Message: fmt.Sprintf("%s %s, got %v", field, message, value),
		Field:   field,
		Value:   value,
	}
}

// NewRequiredFieldError reports a missing field.
func NewRequiredFieldError(field string) *Error {
	return &Error{Kind: KindInvalidInput, Message: field + " is required", Field: field}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *Error {
	if id == "" {
		return New(KindNotFound, fmt.Sprintf("%s not found", entity))
	}
	return New(KindNotFound, fmt.Sprintf("%s %s not found", entity, id))
}

// NewConflictError reports a lost optimistic-lock race.
func NewConflictError(message string) *Error {
	return New(KindConflict, message)
}

// NewUnauthorizedError reports a missing or invalid identity.
func NewUnauthorizedError(message string) *Error {
	return New(KindUnauthorized, message)
}

// NewForbiddenError reports an identity without the required role.
func NewForbiddenError(message string) *Error {
	return New(KindForbidden, message)
}

// NewStorageError wraps an infrastructure failure from the persistence layer.
func NewStorageError(op string, err error) *Error {
	return Wrap(KindStorage, op, err)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
