// Package projects reads the project catalog entries are attached to.
package projects

import (
	"context"

	"github.com/dmitrijs2005/teamflow/internal/server/models"
)

type Repository interface {
	// GetActive returns the project if it exists and is active,
	// common.ErrorNotFound otherwise.
	GetActive(ctx context.Context, id int64) (*models.Project, error)
	ListActive(ctx context.Context) ([]*models.Project, error)
}
