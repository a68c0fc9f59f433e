package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/dbx"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
)

// OpenEntryConstraint is the partial unique index allowing one open entry per user.
const OpenEntryConstraint = "time_entries_one_open_per_user"

const entryColumns = `id, user_id, project_id, task_name, start_time, session_start, end_time,
	elapsed_seconds, idle_seconds, activity_level, status, created_at, updated_at`

// PostgresRepository implements entry storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.TimeEntry, error) {
	var e models.TimeEntry
	var status string
	err := row.Scan(&e.ID, &e.UserID, &e.ProjectID, &e.TaskName, &e.StartTime, &e.SessionStart, &e.EndTime,
		&e.ElapsedSeconds, &e.IdleSeconds, &e.ActivityLevel, &status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = models.EntryStatus(status)
	return &e, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.TimeEntry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

// LockUser serializes timer mutations for userID until the surrounding
// transaction ends. Unlike FOR UPDATE it also covers the "no row yet" case
// of two concurrent starts.
func (r *PostgresRepository) LockUser(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetOpenForUpdate(ctx context.Context, userID int64) (*models.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries
		WHERE user_id = $1 AND status IN ('active', 'paused')
		ORDER BY id DESC LIMIT 1
		FOR UPDATE`
	return r.queryOne(ctx, query, userID)
}

func (r *PostgresRepository) GetOpen(ctx context.Context, userID int64) (*models.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries
		WHERE user_id = $1 AND status IN ('active', 'paused')
		ORDER BY id DESC LIMIT 1`
	return r.queryOne(ctx, query, userID)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id, userID int64) (*models.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`
	return r.queryOne(ctx, query, id, userID)
}

// Create inserts entry and fills in its ID and timestamps. A second open
// entry for the same user surfaces as common.ErrAlreadyRunning.
func (r *PostgresRepository) Create(ctx context.Context, entry *models.TimeEntry) error {
	query := `INSERT INTO time_entries
		(user_id, project_id, task_name, start_time, session_start, elapsed_seconds, idle_seconds, activity_level, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		entry.UserID, entry.ProjectID, entry.TaskName, entry.StartTime, entry.SessionStart,
		entry.ElapsedSeconds, entry.IdleSeconds, entry.ActivityLevel, string(entry.Status),
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, OpenEntryConstraint) {
			return fmt.Errorf("insert entry: %w", common.ErrAlreadyRunning)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update persists the mutable fields of entry.
func (r *PostgresRepository) Update(ctx context.Context, entry *models.TimeEntry) error {
	query := `UPDATE time_entries SET
			status = $2, session_start = $3, end_time = $4,
			elapsed_seconds = $5, idle_seconds = $6, activity_level = $7,
			updated_at = now()
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		entry.ID, string(entry.Status), entry.SessionStart, entry.EndTime,
		entry.ElapsedSeconds, entry.IdleSeconds, entry.ActivityLevel)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// List returns entries newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*models.TimeEntry, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != 0 {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if !filter.From.IsZero() {
		add("start_time >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("start_time < $%d", filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + entryColumns + ` FROM time_entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY start_time DESC LIMIT $%d`, len(args))

	return r.queryMany(ctx, query, args...)
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []*models.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UserStats aggregates paused and completed entries; running sessions are
// left out until they are paused or stopped.
func (r *PostgresRepository) UserStats(ctx context.Context, userID int64, from, to time.Time) (*models.UserStats, error) {
	query := `SELECT
			COUNT(*),
			COALESCE(SUM(elapsed_seconds), 0),
			COALESCE(SUM(idle_seconds), 0),
			COALESCE(AVG(activity_level), 0)::float8
		FROM time_entries
		WHERE user_id = $1
			AND status IN ('completed', 'paused')
			AND start_time >= $2 AND start_time < $3`

	var s models.UserStats
	err := r.db.QueryRowContext(ctx, query, userID, from, to).
		Scan(&s.TotalEntries, &s.TotalSeconds, &s.TotalIdle, &s.AvgActivity)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &s, nil
}

// TeamStats groups every entry, running ones included, by user.
func (r *PostgresRepository) TeamStats(ctx context.Context, from, to time.Time) ([]models.TeamStatsRow, error) {
	query := `SELECT
			user_id,
			COUNT(*),
			COALESCE(SUM(elapsed_seconds), 0),
			COALESCE(AVG(activity_level), 0)::float8
		FROM time_entries
		WHERE status IN ('completed', 'paused', 'active')
			AND start_time >= $1 AND start_time < $2
		GROUP BY user_id
		ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to select team stats: %w", err)
	}
	defer rows.Close()

	result := []models.TeamStatsRow{}
	for rows.Next() {
		var row models.TeamStatsRow
		if err := rows.Scan(&row.UserID, &row.TotalEntries, &row.TotalSeconds, &row.AvgActivity); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DailyTotals(ctx context.Context, userID int64, from, to time.Time, zone string) ([]models.DailyTotal, error) {
	query := `SELECT
			to_char(start_time AT TIME ZONE $4, 'YYYY-MM-DD') AS day,
			COALESCE(SUM(elapsed_seconds), 0)
		FROM time_entries
		WHERE user_id = $1
			AND status IN ('completed', 'paused')
			AND start_time >= $2 AND start_time < $3
		GROUP BY day
		ORDER BY day`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to, zone)
	if err != nil {
		return nil, fmt.Errorf("failed to select daily totals: %w", err)
	}
	defer rows.Close()

	result := []models.DailyTotal{}
	for rows.Next() {
		var d models.DailyTotal
		if err := rows.Scan(&d.Date, &d.TotalSeconds); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ProjectTotals(ctx context.Context, userID int64, from, to time.Time) ([]models.ProjectTotal, error) {
	query := `SELECT
			te.project_id,
			COALESCE(p.name, ''),
			COALESCE(SUM(te.elapsed_seconds), 0) AS total,
			COUNT(te.id)
		FROM time_entries te
		LEFT JOIN projects p ON p.id = te.project_id
		WHERE te.user_id = $1
			AND te.status IN ('completed', 'paused')
			AND te.start_time >= $2 AND te.start_time < $3
		GROUP BY te.project_id, p.name
		ORDER BY total DESC, te.project_id NULLS LAST`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to select project totals: %w", err)
	}
	defer rows.Close()

	result := []models.ProjectTotal{}
	for rows.Next() {
		var p models.ProjectTotal
		if err := rows.Scan(&p.ProjectID, &p.ProjectName, &p.TotalSeconds, &p.Entries); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SumCompleted(ctx context.Context, userID int64, from, to time.Time) (int64, int64, error) {
	query := `SELECT COALESCE(SUM(elapsed_seconds), 0), COUNT(*)
		FROM time_entries
		WHERE user_id = $1 AND status = 'completed'
			AND start_time >= $2 AND start_time < $3`

	var seconds, count int64
	if err := r.db.QueryRowContext(ctx, query, userID, from, to).Scan(&seconds, &count); err != nil {
		return 0, 0, fmt.Errorf("db error: %w", err)
	}
	return seconds, count, nil
}

func (r *PostgresRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) ([]*models.TimeEntry, error) {
	query := `DELETE FROM time_entries
		WHERE status = 'completed' AND start_time < $1
		RETURNING ` + entryColumns
	return r.queryMany(ctx, query, cutoff)
}
