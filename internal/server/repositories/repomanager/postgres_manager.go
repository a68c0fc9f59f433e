package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/teamflow/internal/dbx"
	"github.com/dmitrijs2005/teamflow/internal/server/migrations"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/activitylogs"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/entries"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/payrolls"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/projects"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// gooseUpContext is swapped out in tests.
var gooseUpContext = goose.UpContext

type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Entries(db dbx.DBTX) entries.Repository {
	return entries.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Projects(db dbx.DBTX) projects.Repository {
	return projects.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Payrolls(db dbx.DBTX) payrolls.Repository {
	return payrolls.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) ActivityLogs(db dbx.DBTX) activitylogs.Repository {
	return activitylogs.NewPostgresRepository(db)
}

// RunMigrations applies the embedded goose migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
