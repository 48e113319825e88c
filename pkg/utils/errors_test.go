package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorFormatting(t *testing.T) {
	err := NewAppError(ErrCodeValidation, "Bad input")
	assert.Equal(t, "VALIDATION_ERROR: Bad input", err.Error())

	err = NewAppError(ErrCodeDatabase, "Query failed", "no such table")
	assert.Equal(t, "DATABASE_ERROR: Query failed (no such table)", err.Error())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(NewAppError(ErrCodeConnection, "refused")))
	assert.True(t, IsTransient(NewAppError(ErrCodeBlockchain, "node lagging")))
	assert.False(t, IsTransient(NewAppError(ErrCodeValidation, "bad address")))
	assert.False(t, IsTransient(errors.New("plain error")))
	assert.False(t, IsTransient(nil))

	// Wrapped errors are unwrapped before classification.
	wrapped := fmt.Errorf("poll failed: %w", NewAppError(ErrCodeConnection, "refused"))
	assert.True(t, IsTransient(wrapped))
}
