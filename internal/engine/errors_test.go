package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageFormats(t *testing.T) {
	full := notFoundError("Task", 7, "t1")
	assert.Equal(t, "NOT_FOUND: no entity matches the given id (Task id=7 tenant=t1)", full.Error())

	typed := validationError("Task", "bad attribute")
	assert.Equal(t, "VALIDATION: bad attribute (Task)", typed.Error())

	bare := configurationError("registry is required")
	assert.Equal(t, "CONFIGURATION: registry is required", bare.Error())
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		err  error
		pred func(error) bool
	}{
		{notFoundError("Task", 1, "t1"), IsNotFound},
		{validationError("Task", "x"), IsValidation},
		{conflictError("Task", 1, "t1", "x", nil), IsConflict},
		{persistenceError("Task", 1, "t1", errors.New("io")), IsPersistence},
		{configurationError("x"), IsConfiguration},
	}
	for _, tt := range tests {
		assert.True(t, tt.pred(tt.err))
	}

	assert.False(t, IsNotFound(validationError("Task", "x")))
	assert.False(t, IsConflict(errors.New("plain")))
}

func TestErrorPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", conflictError("Task", 1, "t1", "race", nil))
	assert.True(t, IsConflict(wrapped))
}

func TestPersistenceErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := persistenceError("Task", 1, "t1", cause)
	assert.True(t, errors.Is(err, cause))
}
