package repomanager

import (
	"context"
	"database/sql"

	"github.com/dkovalev/assetvault/internal/dbx"
	"github.com/dkovalev/assetvault/internal/server/repositories/assets"
	"github.com/dkovalev/assetvault/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, so a
// service can run several repositories inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Assets(db dbx.DBTX) assets.Repository
}
