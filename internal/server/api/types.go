// Package api maps operation names to service calls. Transports decode a
// Request, hand it to Router.Handle and encode the Response.
package api

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/dmitrijs2005/teamflow/internal/server/services"
	"github.com/shopspring/decimal"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID       int64
	Capabilities []string
}

func (p Principal) Can(capability string) bool {
	return slices.Contains(p.Capabilities, capability)
}

type Request struct {
	Principal Principal
	Operation string
	Params    json.RawMessage
	RequestID string
}

type Response struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// Timer is the subset of services.TimerService used by the router.
type Timer interface {
	Start(ctx context.Context, userID int64, projectID *int64, taskName string) (*models.TimeEntry, error)
	Pause(ctx context.Context, userID, entryID int64) (int64, error)
	Resume(ctx context.Context, userID, entryID int64) (*models.TimeEntry, error)
	Stop(ctx context.Context, userID, entryID int64) (int64, error)
	UpdateActivity(ctx context.Context, userID, entryID int64, level int, idleSeconds int64) error
	ActiveTimer(ctx context.Context, userID int64) (*models.TimeEntry, error)
	Projects(ctx context.Context) ([]*models.Project, error)
}

type Stats interface {
	UserStats(ctx context.Context, userID int64, period models.Period) (*models.UserStats, error)
	TeamStats(ctx context.Context, period models.Period) ([]models.TeamStatsRow, error)
	Timesheets(ctx context.Context, q services.TimesheetQuery) ([]*models.TimeEntry, error)
	WeeklyBreakdown(ctx context.Context, userID int64) ([]models.DailyTotal, error)
	ProjectDistribution(ctx context.Context, userID int64, period models.Period) ([]models.ProjectTotal, error)
}

type Payroll interface {
	Generate(ctx context.Context, userID int64, startDate, endDate string) ([]services.GeneratedPayroll, error)
	Process(ctx context.Context, payrollID, processedBy int64) error
	List(ctx context.Context, limit int) ([]*models.PayrollRecord, error)
	Summary(ctx context.Context, startDate, endDate string) (*models.PayrollSummary, error)
	SetUserRate(ctx context.Context, userID int64, rate decimal.Decimal) error
}
