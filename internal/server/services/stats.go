package services

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/clock"
	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/logging"
	"github.com/dmitrijs2005/teamflow/internal/server/cache"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/entries"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/repomanager"
)

// StatsService aggregates time entries into period totals. Per-user results
// are cached; the team view is always read from the store.
type StatsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       cache.StatsCache
	clock       clock.Clock
	loc         *time.Location
	logger      logging.Logger
}

func NewStatsService(db *sql.DB, m repomanager.RepositoryManager, c cache.StatsCache,
	clk clock.Clock, loc *time.Location, logger logging.Logger) *StatsService {
	return &StatsService{
		db:          db,
		repomanager: m,
		cache:       c,
		clock:       clk,
		loc:         loc,
		logger:      logger.With("module", "stats"),
	}
}

// PeriodRange resolves p to the half-open interval [from, to) containing
// now, in loc. Weeks start on Monday.
func PeriodRange(now time.Time, loc *time.Location, p models.Period) (time.Time, time.Time, error) {
	now = now.In(loc)
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch p {
	case models.PeriodToday:
		return today, today.AddDate(0, 0, 1), nil
	case models.PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7
		from := today.AddDate(0, 0, -offset)
		return from, from.AddDate(0, 0, 7), nil
	case models.PeriodMonth:
		from := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(0, 1, 0), nil
	case models.PeriodYear:
		from := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, time.Time{}, common.Validationf("unknown period %q", p)
	}
}

// UserStats returns userID's totals over period. Running sessions are not
// counted until paused or stopped.
func (s *StatsService) UserStats(ctx context.Context, userID int64, period models.Period) (*models.UserStats, error) {
	from, to, err := PeriodRange(s.clock.Now(), s.loc, period)
	if err != nil {
		return nil, err
	}

	key := cache.Key{UserID: userID, Period: period, From: from.Format(time.DateOnly)}
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, "stats cache read failed", "user_id", userID, "period", period, "error", err)
	} else if ok {
		return cached, nil
	}

	stats, err := s.repomanager.Entries(s.db).UserStats(ctx, userID, from, to)
	if err != nil {
		return nil, fail(ctx, s.logger, "user stats", err, "user_id", userID, "period", period)
	}

	if err := s.cache.Set(ctx, key, stats); err != nil {
		s.logger.Warn(ctx, "stats cache write failed", "user_id", userID, "period", period, "error", err)
	}
	return stats, nil
}

// TeamStats returns one row per user with entries in period, running
// entries included.
func (s *StatsService) TeamStats(ctx context.Context, period models.Period) ([]models.TeamStatsRow, error) {
	from, to, err := PeriodRange(s.clock.Now(), s.loc, period)
	if err != nil {
		return nil, err
	}
	rows, err := s.repomanager.Entries(s.db).TeamStats(ctx, from, to)
	if err != nil {
		return nil, fail(ctx, s.logger, "team stats", err, "period", period)
	}
	return rows, nil
}

// WeeklyBreakdown returns one total per day of the current Monday-based
// week, zero-filled for days without entries.
func (s *StatsService) WeeklyBreakdown(ctx context.Context, userID int64) ([]models.DailyTotal, error) {
	from, _, err := PeriodRange(s.clock.Now(), s.loc, models.PeriodWeek)
	if err != nil {
		return nil, err
	}
	to := from.AddDate(0, 0, 7)

	rows, err := s.repomanager.Entries(s.db).DailyTotals(ctx, userID, from, to, s.loc.String())
	if err != nil {
		return nil, fail(ctx, s.logger, "weekly breakdown", err, "user_id", userID)
	}

	byDay := make(map[string]int64, len(rows))
	for _, r := range rows {
		byDay[r.Date] = r.TotalSeconds
	}
	days := make([]models.DailyTotal, 7)
	for i := range days {
		day := from.AddDate(0, 0, i).Format(time.DateOnly)
		days[i] = models.DailyTotal{Date: day, TotalSeconds: byDay[day]}
	}
	return days, nil
}

// ProjectDistribution splits userID's tracked time in period by project.
func (s *StatsService) ProjectDistribution(ctx context.Context, userID int64, period models.Period) ([]models.ProjectTotal, error) {
	from, to, err := PeriodRange(s.clock.Now(), s.loc, period)
	if err != nil {
		return nil, err
	}
	rows, err := s.repomanager.Entries(s.db).ProjectTotals(ctx, userID, from, to)
	if err != nil {
		return nil, fail(ctx, s.logger, "project distribution", err, "user_id", userID, "period", period)
	}
	return rows, nil
}

// TimesheetQuery selects entries for the timesheet view. Dates are
// inclusive calendar days in the service time zone.
type TimesheetQuery struct {
	UserID    int64
	StartDate string
	EndDate   string
	Limit     int
}

func (s *StatsService) Timesheets(ctx context.Context, q TimesheetQuery) ([]*models.TimeEntry, error) {
	filter := entries.ListFilter{UserID: q.UserID, Limit: q.Limit}

	if q.StartDate != "" {
		from, err := ParseDate(q.StartDate, s.loc)
		if err != nil {
			return nil, err
		}
		filter.From = from
	}
	if q.EndDate != "" {
		to, err := ParseDate(q.EndDate, s.loc)
		if err != nil {
			return nil, err
		}
		filter.To = to.AddDate(0, 0, 1)
	}
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 100
	}

	list, err := s.repomanager.Entries(s.db).List(ctx, filter)
	if err != nil {
		return nil, fail(ctx, s.logger, "timesheets", err, "user_id", q.UserID)
	}
	return list, nil
}

// Invalidate drops userID's cached stats for every period. Failures are
// logged; stale values expire with the TTL.
func (s *StatsService) Invalidate(ctx context.Context, userID int64) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn(ctx, "stats cache invalidation failed", "user_id", userID, "error", err)
	}
}

// StatsView is the display form of UserStats.
type StatsView struct {
	Hours       float64 `json:"hours"`
	IdleMinutes float64 `json:"idle_minutes"`
	ActivityPct int64   `json:"activity_pct"`
	Entries     int64   `json:"entries"`
}

func NewStatsView(s *models.UserStats) StatsView {
	return StatsView{
		Hours:       roundTo(float64(s.TotalSeconds)/3600, 1),
		IdleMinutes: roundTo(float64(s.TotalIdle)/60, 1),
		ActivityPct: int64(math.Round(s.AvgActivity)),
		Entries:     s.TotalEntries,
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
