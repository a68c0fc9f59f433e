package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/teamflow/internal/clock"
	"github.com/dmitrijs2005/teamflow/internal/logging"
	"github.com/dmitrijs2005/teamflow/internal/server/cache"
	"github.com/dmitrijs2005/teamflow/internal/server/config"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/teamflow/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenDB opens the Postgres pool through the pgx stdlib driver and checks
// that it answers.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// Services is the domain layer built from one configuration. The server
// and the admin CLI share it.
type Services struct {
	Repos     repomanager.RepositoryManager
	Timer     *services.TimerService
	Stats     *services.StatsService
	Payroll   *services.PayrollService
	Retention *services.RetentionService

	closers []func() error
}

// BuildServices wires the services over db. The Redis cache is used when
// RedisAddr is set and the S3 archiver when S3Bucket is set.
func BuildServices(ctx context.Context, cfg *config.Config, db *sql.DB, logger logging.Logger) (*Services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	clk := clock.System()
	rm := repomanager.NewPostgresRepositoryManager()
	s := &Services{Repos: rm}

	var statsCache cache.StatsCache
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		statsCache = cache.NewRedis(client, cfg.StatsCacheTTL)
		logger.Info(ctx, "using redis stats cache", "addr", cfg.RedisAddr)
	} else {
		statsCache = cache.NewMemory(cfg.StatsCacheTTL, clk)
	}

	var archiver services.Archiver
	if cfg.S3Bucket != "" {
		client, err := services.NewS3Client(ctx, cfg)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		archiver = services.NewS3Archiver(client, cfg.S3Bucket, clk)
		logger.Info(ctx, "archiving entries before cleanup", "bucket", cfg.S3Bucket)
	}

	s.Stats = services.NewStatsService(db, rm, statsCache, clk, loc, logger)
	s.Timer = services.NewTimerService(db, rm, cfg, clk, s.Stats, logger)
	s.Payroll = services.NewPayrollService(db, rm, services.PolicyFromConfig(cfg),
		services.LogNotifier{Logger: logger.With("module", "payroll_notifier")}, clk, loc, logger)
	s.Retention = services.NewRetentionService(db, rm, clk, archiver, s.Stats, logger)

	return s, nil
}

// Close releases connections opened by BuildServices. The database is
// owned by the caller.
func (s *Services) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}
