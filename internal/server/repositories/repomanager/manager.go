// Package repomanager vends repositories bound to a *sql.DB or *sql.Tx so
// services can run several of them inside one transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/teamflow/internal/dbx"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/activitylogs"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/entries"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/payrolls"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/projects"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Entries(db dbx.DBTX) entries.Repository
	Projects(db dbx.DBTX) projects.Repository
	Users(db dbx.DBTX) users.Repository
	Payrolls(db dbx.DBTX) payrolls.Repository
	ActivityLogs(db dbx.DBTX) activitylogs.Repository
}
