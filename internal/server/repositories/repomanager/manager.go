package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/threads/internal/dbx"
	"github.com/dmitrijs2005/threads/internal/server/repositories/posts"
	"github.com/dmitrijs2005/threads/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a *sql.DB or a *sql.Tx so
// services can run several of them inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Posts(db dbx.DBTX) posts.Repository
}
