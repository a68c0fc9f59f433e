// Package entries persists time entries and answers the aggregate queries
// built on top of them.
package entries

import (
	"context"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/server/models"
)

// ListFilter narrows List. Zero values mean "no constraint".
type ListFilter struct {
	UserID int64
	Status models.EntryStatus
	From   time.Time
	To     time.Time
	Limit  int
}

type Repository interface {
	// LockUser takes the per-user timer lock for the rest of the transaction.
	LockUser(ctx context.Context, userID int64) error
	// GetOpenForUpdate returns the user's active/paused entry, row-locked.
	GetOpenForUpdate(ctx context.Context, userID int64) (*models.TimeEntry, error)
	// GetOpen is the unlocked variant, for display only.
	GetOpen(ctx context.Context, userID int64) (*models.TimeEntry, error)
	// GetForUpdate loads and row-locks an entry owned by userID.
	GetForUpdate(ctx context.Context, id, userID int64) (*models.TimeEntry, error)

	Create(ctx context.Context, entry *models.TimeEntry) error
	Update(ctx context.Context, entry *models.TimeEntry) error
	List(ctx context.Context, filter ListFilter) ([]*models.TimeEntry, error)

	UserStats(ctx context.Context, userID int64, from, to time.Time) (*models.UserStats, error)
	TeamStats(ctx context.Context, from, to time.Time) ([]models.TeamStatsRow, error)
	// DailyTotals sums paused and completed entries per calendar day of
	// zone, in date order. Days without entries are omitted.
	DailyTotals(ctx context.Context, userID int64, from, to time.Time, zone string) ([]models.DailyTotal, error)
	// ProjectTotals sums paused and completed entries per project, largest first.
	ProjectTotals(ctx context.Context, userID int64, from, to time.Time) ([]models.ProjectTotal, error)
	SumCompleted(ctx context.Context, userID int64, from, to time.Time) (seconds int64, count int64, err error)

	// DeleteCompletedBefore removes completed entries started before cutoff
	// and returns the deleted rows.
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) ([]*models.TimeEntry, error)
}
