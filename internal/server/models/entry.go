// Package models defines server-side data models persisted in the database.
package models

import (
	"database/sql"
	"time"
)

// EntryStatus is the lifecycle state of a TimeEntry.
type EntryStatus string

const (
	StatusActive    EntryStatus = "active"
	StatusPaused    EntryStatus = "paused"
	StatusCompleted EntryStatus = "completed"
)

// Open reports whether the entry still counts against the one-open-timer rule.
func (s EntryStatus) Open() bool {
	return s == StatusActive || s == StatusPaused
}

// TimeEntry is one work session.
type TimeEntry struct {
	ID        int64
	UserID    int64
	ProjectID sql.NullInt64
	TaskName  string

	// StartTime is set once at creation. SessionStart marks the beginning of
	// the current running session and moves forward on resume.
	StartTime    time.Time
	SessionStart time.Time
	EndTime      sql.NullTime

	// ElapsedSeconds accumulates closed sessions; never decreases.
	ElapsedSeconds int64
	IdleSeconds    int64
	ActivityLevel  int

	Status    EntryStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
