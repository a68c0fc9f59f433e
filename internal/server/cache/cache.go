// Package cache memoizes per-user period statistics for a short TTL.
// Entries may be stale until they expire or are invalidated; timer state is
// never read from here.
package cache

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/teamflow/internal/server/models"
)

// Key identifies one cached aggregate. From is the first day of the period
// range (YYYY-MM-DD), so a new day, week or month never hits an old value.
type Key struct {
	UserID int64
	Period models.Period
	From   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s%s:%s", userPrefix(k.UserID), k.Period, k.From)
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("teamflow:stats:%d:", userID)
}

type StatsCache interface {
	// Get reports a miss with (nil, false, nil).
	Get(ctx context.Context, key Key) (*models.UserStats, bool, error)
	Set(ctx context.Context, key Key, stats *models.UserStats) error
	// Invalidate drops every key cached for userID.
	Invalidate(ctx context.Context, userID int64) error
}
