// Package payrolls persists computed payroll records.
package payrolls

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/server/models"
)

type ListFilter struct {
	UserID int64
	Status models.PayrollStatus
	Limit  int
}

type Repository interface {
	// Upsert writes rec for its (user, period). A pending row is overwritten;
	// a processed one is left untouched and loaded into rec instead, in which
	// case Upsert reports false.
	Upsert(ctx context.Context, rec *models.PayrollRecord) (bool, error)
	GetByPeriod(ctx context.Context, userID int64, start, end time.Time) (*models.PayrollRecord, error)
	GetForUpdate(ctx context.Context, id int64) (*models.PayrollRecord, error)
	MarkProcessed(ctx context.Context, id int64, at time.Time, by int64) error
	List(ctx context.Context, filter ListFilter) ([]*models.PayrollRecord, error)
	// Summary aggregates records whose period lies inside [from, to]. Null
	// bounds are open.
	Summary(ctx context.Context, from, to sql.NullTime) (*models.PayrollSummary, error)
}
