package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/dbx"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	var status string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ClientName, &p.HourlyRate, &status); err != nil {
		return nil, err
	}
	p.Status = models.ProjectStatus(status)
	return &p, nil
}

func (r *PostgresRepository) GetActive(ctx context.Context, id int64) (*models.Project, error) {
	query := `SELECT id, name, description, client_name, hourly_rate, status
		FROM projects WHERE id = $1 AND status = 'active'`

	p, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]*models.Project, error) {
	query := `SELECT id, name, description, client_name, hourly_rate, status
		FROM projects WHERE status = 'active' ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select projects: %w", err)
	}
	defer rows.Close()

	result := []*models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
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
