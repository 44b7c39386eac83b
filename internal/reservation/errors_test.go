package reservation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("resolve: %w", NewForbiddenError("r1", "not the owner"))

	assert.Equal(t, KindForbidden, KindOf(err))
	assert.True(t, IsKind(err, KindForbidden))
	assert.False(t, IsKind(err, KindPersistence))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, KindForbidden))
}

func TestErrorMessage(t *testing.T) {
	err := NewInvalidStateTransitionError("r1", "reservation is cancelled")
	assert.Equal(t, "InvalidStateTransitionError: reservation is cancelled (reservation=r1)", err.Error())

	cause := errors.New("disk I/O error")
	perr := NewPersistenceError("create", cause)
	assert.Equal(t, "PersistenceError: create failed: disk I/O error", perr.Error())
	assert.ErrorIs(t, perr, cause)
	assert.True(t, IsPersistenceError(perr))
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(NewInvalidIntervalError("x")))
	assert.True(t, IsValidationError(NewPastIntervalError("x")))
	assert.True(t, IsValidationError(NewResourceNotFoundError("GPU-Z")))
	assert.True(t, IsValidationError(NewMalformedRequestError("x")))
	assert.False(t, IsValidationError(NewForbiddenError("r1", "x")))
	assert.False(t, IsValidationError(NewPersistenceError("op", errors.New("x"))))
}
