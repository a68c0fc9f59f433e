// Package users stores the payroll-relevant mirror of identity records.
package users

import (
	"context"

	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*models.User, error)
	// GetHourlyRate returns zero for users without a stored rate.
	GetHourlyRate(ctx context.Context, id int64) (decimal.Decimal, error)
	SetHourlyRate(ctx context.Context, id int64, rate decimal.Decimal) error
	ListByRoles(ctx context.Context, roles ...string) ([]*models.User, error)
}
