package payrolls

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

const payrollColumns = `id, user_id, period_start, period_end, hours_worked, hourly_rate,
	gross_pay, overtime_pay, deductions, net_pay, status, processed_at, processed_by,
	created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.PayrollRecord, error) {
	var p models.PayrollRecord
	var status string
	err := row.Scan(&p.ID, &p.UserID, &p.PeriodStart, &p.PeriodEnd, &p.HoursWorked, &p.HourlyRate,
		&p.GrossPay, &p.OvertimePay, &p.Deductions, &p.NetPay, &status, &p.ProcessedAt, &p.ProcessedBy,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.PayrollStatus(status)
	return &p, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.PayrollRecord, error) {
	p, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.PayrollRecord) (bool, error) {
	query := `INSERT INTO payroll_records
			(user_id, period_start, period_end, hours_worked, hourly_rate,
			 gross_pay, overtime_pay, deductions, net_pay, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending')
		ON CONFLICT ON CONSTRAINT payroll_records_user_period_key DO UPDATE SET
			hours_worked = EXCLUDED.hours_worked,
			hourly_rate = EXCLUDED.hourly_rate,
			gross_pay = EXCLUDED.gross_pay,
			overtime_pay = EXCLUDED.overtime_pay,
			deductions = EXCLUDED.deductions,
			net_pay = EXCLUDED.net_pay,
			updated_at = now()
		WHERE payroll_records.status = 'pending'
		RETURNING id, status, created_at, updated_at`

	var status string
	err := r.db.QueryRowContext(ctx, query,
		rec.UserID, rec.PeriodStart, rec.PeriodEnd, rec.HoursWorked, rec.HourlyRate,
		rec.GrossPay, rec.OvertimePay, rec.Deductions, rec.NetPay,
	).Scan(&rec.ID, &status, &rec.CreatedAt, &rec.UpdatedAt)

	switch {
	case err == nil:
		rec.Status = models.PayrollStatus(status)
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		// conflict with a processed row: the WHERE clause suppressed the update
		existing, err := r.GetByPeriod(ctx, rec.UserID, rec.PeriodStart, rec.PeriodEnd)
		if err != nil {
			return false, err
		}
		*rec = *existing
		return false, nil
	default:
		return false, fmt.Errorf("db error: %w", err)
	}
}

func (r *PostgresRepository) GetByPeriod(ctx context.Context, userID int64, start, end time.Time) (*models.PayrollRecord, error) {
	query := `SELECT ` + payrollColumns + ` FROM payroll_records
		WHERE user_id = $1 AND period_start = $2 AND period_end = $3`
	return r.queryOne(ctx, query, userID, start, end)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id int64) (*models.PayrollRecord, error) {
	query := `SELECT ` + payrollColumns + ` FROM payroll_records WHERE id = $1 FOR UPDATE`
	return r.queryOne(ctx, query, id)
}

func (r *PostgresRepository) MarkProcessed(ctx context.Context, id int64, at time.Time, by int64) error {
	query := `UPDATE payroll_records
		SET status = 'processed', processed_at = $2, processed_by = $3, updated_at = now()
		WHERE id = $1 AND status = 'pending'`

	res, err := r.db.ExecContext(ctx, query, id, at, by)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*models.PayrollRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + payrollColumns + ` FROM payroll_records`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY period_end DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select payroll records: %w", err)
	}
	defer rows.Close()

	result := []*models.PayrollRecord{}
	for rows.Next() {
		p, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Summary(ctx context.Context, from, to sql.NullTime) (*models.PayrollSummary, error) {
	query := `SELECT
			COUNT(*),
			COALESCE(SUM(hours_worked), 0),
			COALESCE(SUM(gross_pay), 0),
			COALESCE(SUM(deductions), 0),
			COALESCE(SUM(net_pay), 0),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COALESCE(SUM(net_pay) FILTER (WHERE status = 'pending'), 0)
		FROM payroll_records
		WHERE ($1::date IS NULL OR period_start >= $1)
			AND ($2::date IS NULL OR period_end <= $2)`

	var s models.PayrollSummary
	err := r.db.QueryRowContext(ctx, query, from, to).Scan(
		&s.TotalRecords, &s.TotalHours, &s.TotalGross, &s.TotalDeductions, &s.TotalNet,
		&s.PendingCount, &s.PendingAmount)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &s, nil
}
