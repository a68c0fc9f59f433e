package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlreadyRunningError_MatchesSentinel(t *testing.T) {
	var err error = &AlreadyRunningError{EntryID: 42}

	assert.True(t, errors.Is(err, ErrAlreadyRunning))
	assert.Contains(t, err.Error(), "42")

	var ar *AlreadyRunningError
	require.True(t, errors.As(err, &ar))
	assert.Equal(t, int64(42), ar.EntryID)
}

func TestValidationf_WrapsSentinel(t *testing.T) {
	err := Validationf("task name too long (max %d characters)", 255)

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "validation error: task name too long (max 255 characters)", err.Error())
}
