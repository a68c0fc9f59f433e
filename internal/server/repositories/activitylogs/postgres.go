package activitylogs

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/teamflow/internal/dbx"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, log *models.ActivityLog) error {
	query := `INSERT INTO activity_logs (time_entry_id, user_id, activity_type, activity_data, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var data any
	if len(log.ActivityData) > 0 {
		data = string(log.ActivityData)
	}

	err := r.db.QueryRowContext(ctx, query, log.TimeEntryID, log.UserID, log.ActivityType, data, log.RecordedAt).
		Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
