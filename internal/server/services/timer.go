package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/teamflow/internal/clock"
	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/dbx"
	"github.com/dmitrijs2005/teamflow/internal/logging"
	"github.com/dmitrijs2005/teamflow/internal/server/config"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/repomanager"
)

const maxTaskNameLen = 255

// StatsInvalidator drops cached aggregates for a user. Callers invoke it
// only after their transaction has committed.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, userID int64)
}

// TimerService owns the lifecycle of time entries:
// (none) -> active -> paused <-> active -> completed.
type TimerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
	stats       StatsInvalidator
	logger      logging.Logger
	locks       *userLocks

	tolerance   time.Duration
	logActivity bool
}

func NewTimerService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	c clock.Clock, stats StatsInvalidator, logger logging.Logger) *TimerService {
	return &TimerService{
		db:          db,
		repomanager: m,
		clock:       c,
		stats:       stats,
		logger:      logger.With("module", "timer"),
		locks:       newUserLocks(),
		tolerance:   cfg.ElapsedTolerance,
		logActivity: cfg.LogActivityUpdates,
	}
}

// now is truncated to whole seconds, the resolution elapsed time is kept in.
func (s *TimerService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Second)
}

func seconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Start opens a new active entry for userID.
func (s *TimerService) Start(ctx context.Context, userID int64, projectID *int64, taskName string) (*models.TimeEntry, error) {
	taskName = strings.TrimSpace(taskName)
	if n := utf8.RuneCountInString(taskName); n == 0 || n > maxTaskNameLen {
		return nil, common.Validationf("task name must be 1-%d characters", maxTaskNameLen)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	var entry *models.TimeEntry
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Entries(tx)

		if err := repo.LockUser(ctx, userID); err != nil {
			return err
		}

		open, err := repo.GetOpenForUpdate(ctx, userID)
		switch {
		case err == nil:
			return &common.AlreadyRunningError{EntryID: open.ID}
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		var project sql.NullInt64
		if projectID != nil {
			if _, err := s.repomanager.Projects(tx).GetActive(ctx, *projectID); err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.ErrInvalidProject
				}
				return err
			}
			project = sql.NullInt64{Int64: *projectID, Valid: true}
		}

		now := s.now()
		entry = &models.TimeEntry{
			UserID:       userID,
			ProjectID:    project,
			TaskName:     taskName,
			StartTime:    now,
			SessionStart: now,
			Status:       models.StatusActive,
		}
		return repo.Create(ctx, entry)
	})
	if err != nil {
		var running *common.AlreadyRunningError
		if errors.Is(err, common.ErrAlreadyRunning) && !errors.As(err, &running) {
			// lost the race against a writer that bypassed the user lock
			err = &common.AlreadyRunningError{}
		}
		return nil, fail(ctx, s.logger, "start timer", err, "user_id", userID)
	}

	s.stats.Invalidate(ctx, userID)
	s.logger.Info(ctx, "timer started", "user_id", userID, "entry_id", entry.ID)
	return entry, nil
}

// mutate runs fn against the user's row-locked entry and persists it.
func (s *TimerService) mutate(ctx context.Context, op string, userID, entryID int64,
	fn func(ctx context.Context, tx dbx.DBTX, e *models.TimeEntry, now time.Time) error) (*models.TimeEntry, error) {

	unlock := s.locks.Lock(userID)
	defer unlock()

	var entry *models.TimeEntry
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Entries(tx)

		if err := repo.LockUser(ctx, userID); err != nil {
			return err
		}

		e, err := repo.GetForUpdate(ctx, entryID, userID)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, e, s.now()); err != nil {
			return err
		}
		if err := repo.Update(ctx, e); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, fail(ctx, s.logger, op, err, "user_id", userID, "entry_id", entryID)
	}

	s.stats.Invalidate(ctx, userID)
	return entry, nil
}

// Pause closes the running session and adds it to the entry's elapsed time.
func (s *TimerService) Pause(ctx context.Context, userID, entryID int64) (int64, error) {
	e, err := s.mutate(ctx, "pause timer", userID, entryID,
		func(_ context.Context, _ dbx.DBTX, e *models.TimeEntry, now time.Time) error {
			if e.Status != models.StatusActive {
				return common.ErrInvalidState
			}
			e.ElapsedSeconds += seconds(now.Sub(e.SessionStart))
			e.Status = models.StatusPaused
			return nil
		})
	if err != nil {
		return 0, err
	}
	return e.ElapsedSeconds, nil
}

// Resume starts a new session on a paused entry.
func (s *TimerService) Resume(ctx context.Context, userID, entryID int64) (*models.TimeEntry, error) {
	return s.mutate(ctx, "resume timer", userID, entryID,
		func(_ context.Context, _ dbx.DBTX, e *models.TimeEntry, now time.Time) error {
			if e.Status != models.StatusPaused {
				return common.ErrInvalidState
			}
			e.Status = models.StatusActive
			e.SessionStart = now
			return nil
		})
}

// Stop completes the entry. The client-visible elapsed time may never
// exceed the wall time since start by more than the configured tolerance;
// a larger claim is replaced by the wall time.
func (s *TimerService) Stop(ctx context.Context, userID, entryID int64) (int64, error) {
	e, err := s.mutate(ctx, "stop timer", userID, entryID,
		func(ctx context.Context, _ dbx.DBTX, e *models.TimeEntry, now time.Time) error {
			if !e.Status.Open() {
				return common.ErrInvalidState
			}

			serverMax := seconds(now.Sub(e.StartTime))

			var session int64
			if e.Status == models.StatusActive {
				session = seconds(now.Sub(e.SessionStart))
			}
			claimed := session + e.ElapsedSeconds

			elapsed := claimed
			if claimed > serverMax+seconds(s.tolerance) {
				s.logger.Warn(ctx, "elapsed time claim rejected",
					"user_id", userID, "entry_id", e.ID, "claimed", claimed, "max", serverMax)
				elapsed = serverMax
			}
			if elapsed < 1 {
				elapsed = 1
			}

			e.ElapsedSeconds = elapsed
			e.Status = models.StatusCompleted
			e.EndTime = sql.NullTime{Time: now, Valid: true}
			return nil
		})
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "timer stopped", "user_id", userID, "entry_id", entryID, "elapsed_seconds", e.ElapsedSeconds)
	return e.ElapsedSeconds, nil
}

type activitySample struct {
	ActivityLevel int   `json:"activity_level"`
	IdleSeconds   int64 `json:"idle_seconds"`
}

// UpdateActivity records the client's latest activity sample on a running
// entry. Out-of-range inputs are clamped.
func (s *TimerService) UpdateActivity(ctx context.Context, userID, entryID int64, level int, idleSeconds int64) error {
	level = max(0, min(100, level))
	idleSeconds = max(0, idleSeconds)

	_, err := s.mutate(ctx, "update activity", userID, entryID,
		func(ctx context.Context, tx dbx.DBTX, e *models.TimeEntry, now time.Time) error {
			if e.Status != models.StatusActive {
				return common.ErrInvalidState
			}
			e.ActivityLevel = level
			e.IdleSeconds = idleSeconds

			if !s.logActivity {
				return nil
			}
			data, err := json.Marshal(activitySample{ActivityLevel: level, IdleSeconds: idleSeconds})
			if err != nil {
				return err
			}
			return s.repomanager.ActivityLogs(tx).Append(ctx, &models.ActivityLog{
				TimeEntryID:  e.ID,
				UserID:       userID,
				ActivityType: "activity_update",
				ActivityData: data,
				RecordedAt:   now,
			})
		})
	return err
}

// ActiveTimer returns the user's open entry, or nil when there is none.
func (s *TimerService) ActiveTimer(ctx context.Context, userID int64) (*models.TimeEntry, error) {
	e, err := s.repomanager.Entries(s.db).GetOpen(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, fail(ctx, s.logger, "get active timer", err, "user_id", userID)
	}
	return e, nil
}

// Projects lists the projects new entries may be attached to.
func (s *TimerService) Projects(ctx context.Context) ([]*models.Project, error) {
	projects, err := s.repomanager.Projects(s.db).ListActive(ctx)
	if err != nil {
		return nil, fail(ctx, s.logger, "list projects", err)
	}
	return projects, nil
}
