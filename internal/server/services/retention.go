package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/teamflow/internal/clock"
	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/dbx"
	"github.com/dmitrijs2005/teamflow/internal/logging"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/repomanager"
)

// CleanupResult describes one retention run.
type CleanupResult struct {
	Deleted    int
	ArchiveKey string
}

// RetentionService deletes old completed entries, optionally archiving
// them first. Open entries are never touched.
type RetentionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
	archiver    Archiver
	stats       StatsInvalidator
	logger      logging.Logger
}

// NewRetentionService builds the service; archiver may be nil.
func NewRetentionService(db *sql.DB, m repomanager.RepositoryManager, clk clock.Clock,
	archiver Archiver, stats StatsInvalidator, logger logging.Logger) *RetentionService {
	return &RetentionService{
		db:          db,
		repomanager: m,
		clock:       clk,
		archiver:    archiver,
		stats:       stats,
		logger:      logger.With("module", "retention"),
	}
}

// Cleanup removes completed entries started more than days ago. The
// archive upload happens inside the delete transaction, so a failed upload
// keeps the rows.
func (s *RetentionService) Cleanup(ctx context.Context, days int) (*CleanupResult, error) {
	if days < 1 {
		return nil, common.Validationf("days must be positive, got %d", days)
	}
	cutoff := s.clock.Now().UTC().AddDate(0, 0, -days)

	var (
		deleted []*models.TimeEntry
		key     string
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		deleted, err = s.repomanager.Entries(tx).DeleteCompletedBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if s.archiver == nil || len(deleted) == 0 {
			return nil
		}
		key, err = s.archiver.Archive(ctx, deleted)
		return err
	})
	if err != nil {
		return nil, fail(ctx, s.logger, "cleanup entries", err, "days", days)
	}

	users := make(map[int64]struct{})
	for _, e := range deleted {
		users[e.UserID] = struct{}{}
	}
	for id := range users {
		s.stats.Invalidate(ctx, id)
	}

	s.logger.Info(ctx, "old entries cleaned up", "deleted", len(deleted), "cutoff", cutoff, "archive_key", key)
	return &CleanupResult{Deleted: len(deleted), ArchiveKey: key}, nil
}
