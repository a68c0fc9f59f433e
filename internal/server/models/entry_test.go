package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryStatus_Open(t *testing.T) {
	assert.True(t, StatusActive.Open())
	assert.True(t, StatusPaused.Open())
	assert.False(t, StatusCompleted.Open())
	assert.False(t, EntryStatus("").Open())
}
