package ctl

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/teamflow/internal/logging"
	"github.com/dmitrijs2005/teamflow/internal/server"
	"github.com/dmitrijs2005/teamflow/internal/server/config"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/dmitrijs2005/teamflow/internal/server/services"
	"github.com/shopspring/decimal"
)

// Backend is the storage-backed half of the CLI.
type Backend interface {
	Migrate(ctx context.Context) error
	GeneratePayroll(ctx context.Context, userID int64, startDate, endDate string) ([]services.GeneratedPayroll, error)
	ProcessPayroll(ctx context.Context, payrollID, processedBy int64) error
	PayrollSummary(ctx context.Context, startDate, endDate string) (*models.PayrollSummary, error)
	SetUserRate(ctx context.Context, userID int64, rate decimal.Decimal) error
	Cleanup(ctx context.Context, days int) (*services.CleanupResult, error)
	Close() error
}

// Opener connects a Backend for one command run.
type Opener func(ctx context.Context, cfg *config.Config, logger logging.Logger) (Backend, error)

type dbBackend struct {
	db  *sql.DB
	svc *server.Services
}

// OpenDB is the production Opener.
func OpenDB(ctx context.Context, cfg *config.Config, logger logging.Logger) (Backend, error) {
	db, err := server.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	svc, err := server.BuildServices(ctx, cfg, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &dbBackend{db: db, svc: svc}, nil
}

func (b *dbBackend) Migrate(ctx context.Context) error {
	return b.svc.Repos.RunMigrations(ctx, b.db)
}

func (b *dbBackend) GeneratePayroll(ctx context.Context, userID int64, startDate, endDate string) ([]services.GeneratedPayroll, error) {
	return b.svc.Payroll.Generate(ctx, userID, startDate, endDate)
}

func (b *dbBackend) ProcessPayroll(ctx context.Context, payrollID, processedBy int64) error {
	return b.svc.Payroll.Process(ctx, payrollID, processedBy)
}

func (b *dbBackend) PayrollSummary(ctx context.Context, startDate, endDate string) (*models.PayrollSummary, error) {
	return b.svc.Payroll.Summary(ctx, startDate, endDate)
}

func (b *dbBackend) SetUserRate(ctx context.Context, userID int64, rate decimal.Decimal) error {
	return b.svc.Payroll.SetUserRate(ctx, userID, rate)
}

func (b *dbBackend) Cleanup(ctx context.Context, days int) (*services.CleanupResult, error) {
	return b.svc.Retention.Cleanup(ctx, days)
}

func (b *dbBackend) Close() error {
	return errors.Join(b.svc.Close(), b.db.Close())
}
