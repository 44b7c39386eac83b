package reservation

import (
	"errors"
	"fmt"
)

// Error is the structured error returned by every engine operation.
//
// Kind is a stable discriminator that clients use to render an actionable
// message. Err carries the underlying cause when there is one (for example
// the storage error behind a PersistenceError).
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Message is a human-readable description.
	Message string

	// ReservationID identifies the affected reservation, if any.
	ReservationID string

	// Err is the wrapped cause.
	Err error
}

// ErrorKind categorizes errors.
type ErrorKind string

const (
	// KindInvalidInterval indicates start >= end.
	KindInvalidInterval ErrorKind = "InvalidIntervalError"

	// KindPastInterval indicates the interval starts before now.
	KindPastInterval ErrorKind = "PastIntervalError"

	// KindResourceNotFound indicates the resource is not in the catalog.
	KindResourceNotFound ErrorKind = "ResourceNotFoundError"

	// KindMalformedRequest indicates missing or inconsistent request fields.
	KindMalformedRequest ErrorKind = "MalformedRequestError"

	// KindInvalidStateTransition indicates the reservation is not in a status
	// that permits the operation.
	KindInvalidStateTransition ErrorKind = "InvalidStateTransitionError"

	// KindForbidden indicates the caller does not own the reservation.
	KindForbidden ErrorKind = "ForbiddenError"

	// KindPersistence indicates the store failed after retrying.
	KindPersistence ErrorKind = "PersistenceError"

	// KindReservationNotFound indicates no reservation has the given id.
	KindReservationNotFound ErrorKind = "ReservationNotFoundError"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.ReservationID != "" {
		msg = fmt.Sprintf("%s (reservation=%s)", msg, e.ReservationID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsValidationError reports whether err was raised before any mutation
// because the request itself was unacceptable. Validation errors are never
// retried.
func IsValidationError(err error) bool {
	switch KindOf(err) {
	case KindInvalidInterval, KindPastInterval, KindResourceNotFound, KindMalformedRequest:
		return true
	}
	return false
}

// IsPersistenceError reports whether err is a PersistenceError.
func IsPersistenceError(err error) bool {
	return IsKind(err, KindPersistence)
}

func NewInvalidIntervalError(message string) *Error {
	return &Error{Kind: KindInvalidInterval, Message: message}
}

func NewPastIntervalError(message string) *Error {
	return &Error{Kind: KindPastInterval, Message: message}
}

func NewResourceNotFoundError(resourceID string) *Error {
	return &Error{Kind: KindResourceNotFound, Message: fmt.Sprintf("resource %q does not exist", resourceID)}
}

func NewMalformedRequestError(message string) *Error {
	return &Error{Kind: KindMalformedRequest, Message: message}
}

func NewInvalidStateTransitionError(id, message string) *Error {
	return &Error{Kind: KindInvalidStateTransition, Message: message, ReservationID: id}
}

func NewForbiddenError(id, message string) *Error {
	return &Error{Kind: KindForbidden, Message: message, ReservationID: id}
}

func NewReservationNotFoundError(id string) *Error {
	return &Error{Kind: KindReservationNotFound, Message: "reservation does not exist", ReservationID: id}
}

// NewPersistenceError wraps a storage failure.
func NewPersistenceError(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: op + " failed", Err: err}
}
