package models

import "database/sql"

// UserStats are the totals of one user's entries within a period.
type UserStats struct {
	TotalSeconds int64   `json:"total_seconds"`
	TotalIdle    int64   `json:"total_idle"`
	AvgActivity  float64 `json:"avg_activity"`
	TotalEntries int64   `json:"total_entries"`
}

// TeamStatsRow is one user's line in the team view.
type TeamStatsRow struct {
	UserID       int64   `json:"user_id"`
	TotalEntries int64   `json:"total_entries"`
	TotalSeconds int64   `json:"total_seconds"`
	AvgActivity  float64 `json:"avg_activity"`
}

// Period names a reporting window anchored to the current time.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Periods lists every supported Period.
var Periods = []Period{PeriodToday, PeriodWeek, PeriodMonth, PeriodYear}

// DailyTotal is the tracked time of one calendar day, formatted as
// YYYY-MM-DD in the service time zone.
type DailyTotal struct {
	Date         string `json:"date"`
	TotalSeconds int64  `json:"total_seconds"`
}

// ProjectTotal is the tracked time attributed to one project. Entries
// without a project are reported with an invalid ProjectID.
type ProjectTotal struct {
	ProjectID    sql.NullInt64 `json:"project_id"`
	ProjectName  string        `json:"project_name"`
	TotalSeconds int64         `json:"total_seconds"`
	Entries      int64         `json:"entries"`
}
