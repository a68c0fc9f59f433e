// Package server assembles the TeamFlow server: storage, services, the
// gRPC and HTTP transports and the retention scheduler.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/teamflow/internal/logging"
	"github.com/dmitrijs2005/teamflow/internal/server/api"
	"github.com/dmitrijs2005/teamflow/internal/server/config"
	"github.com/dmitrijs2005/teamflow/internal/server/httpapi"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/teamflow/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	services  *Services
	router    *api.Router
	scheduler *cron.Cron
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, db *sql.DB, logger logging.Logger) (*App, error) {
	svc, err := BuildServices(ctx, c, db, logger)
	if err != nil {
		return nil, err
	}

	if err := svc.Repos.RunMigrations(ctx, db); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	app := &App{
		config:   c,
		logger:   logger,
		db:       db,
		services: svc,
		router:   api.NewRouter(svc.Timer, svc.Stats, svc.Payroll, logger),
	}

	if c.AutoCleanupEntries {
		app.scheduler, err = app.newScheduler()
		if err != nil {
			_ = svc.Close()
			return nil, err
		}
	}

	return app, nil
}

// newScheduler registers the daily retention job in the configured zone.
func (app *App) newScheduler() (*cron.Cron, error) {
	loc, err := app.config.Location()
	if err != nil {
		return nil, err
	}

	sched := cron.New(cron.WithLocation(loc))
	if _, err := sched.AddFunc(app.config.RetentionCron, func() {
		app.runRetention(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("retention schedule %q: %w", app.config.RetentionCron, err)
	}
	return sched, nil
}

func (app *App) runRetention(ctx context.Context) {
	res, err := app.services.Retention.Cleanup(ctx, app.config.CleanupDays)
	if err != nil {
		app.logger.Error(ctx, "scheduled cleanup failed", "error", err)
		return
	}
	app.logger.Info(ctx, "scheduled cleanup finished", "deleted", res.Deleted, "archive_key", res.ArchiveKey)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a signal arrives or a transport fails,
// then releases every resource.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "operations", len(app.router.Operations()))

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return gs.NewServer(app.config.EndpointAddrGRPC, app.logger, app.router, app.config.SecretKey).Run(ctx)
	})
	g.Go(func() error {
		return httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.router, app.db, app.config.SecretKey).Run(ctx)
	})

	if app.scheduler != nil {
		app.scheduler.Start()
		app.logger.Info(ctx, "retention job scheduled", "cron", app.config.RetentionCron, "days", app.config.CleanupDays)
		g.Go(func() error {
			<-ctx.Done()
			<-app.scheduler.Stop().Done()
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
	}

	if cerr := app.close(); cerr != nil {
		app.logger.Error(ctx, "shutdown", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}

func (app *App) close() error {
	svcErr := app.services.Close()
	if err := app.db.Close(); err != nil {
		return err
	}
	return svcErr
}
