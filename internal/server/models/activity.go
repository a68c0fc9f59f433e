package models

import "time"

// ActivityLog is an append-only telemetry sample.
type ActivityLog struct {
	ID           int64
	TimeEntryID  int64
	UserID       int64
	ActivityType string
	ActivityData []byte
	RecordedAt   time.Time
}
