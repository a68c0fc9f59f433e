package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/dbx"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/shopspring/decimal"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, display_name, email, role, hourly_rate FROM users WHERE id = $1`

	var u models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.DisplayName, &u.Email, &u.Role, &u.HourlyRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) GetHourlyRate(ctx context.Context, id int64) (decimal.Decimal, error) {
	query := `SELECT hourly_rate FROM users WHERE id = $1`

	var rate decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, id).Scan(&rate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("db error: %w", err)
	}
	return rate, nil
}

// SetHourlyRate creates a placeholder row when the user has not been
// mirrored yet.
func (r *PostgresRepository) SetHourlyRate(ctx context.Context, id int64, rate decimal.Decimal) error {
	query := `INSERT INTO users (id, display_name, hourly_rate)
		VALUES ($1, '', $2)
		ON CONFLICT (id) DO UPDATE SET hourly_rate = EXCLUDED.hourly_rate, updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, id, rate); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByRoles(ctx context.Context, roles ...string) ([]*models.User, error) {
	if len(roles) == 0 {
		return []*models.User{}, nil
	}

	placeholders := make([]string, len(roles))
	args := make([]any, len(roles))
	for i, role := range roles {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = role
	}

	query := `SELECT id, display_name, email, role, hourly_rate FROM users
		WHERE role IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	result := []*models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.Email, &u.Role, &u.HourlyRate); err != nil {
			return nil, err
		}
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
