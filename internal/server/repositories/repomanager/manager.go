package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/hobbyvault/internal/dbx"
	"github.com/dmitrijs2005/hobbyvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/hobbyvault/internal/server/repositories/refreshtokens"
)

// RepositoryManager vends repositories bound to a DBTX so callers can run
// several of them inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
