package registry

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/dbx"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
	"github.com/dmitrijs2005/hobbyvault/internal/server/repositories/repomanager"
)

// SQLRegistry keeps records in the refresh_tokens table.
type SQLRegistry struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	now   func() time.Time
}

func NewSQLRegistry(db *sql.DB, repos repomanager.RepositoryManager) *SQLRegistry {
	return &SQLRegistry{db: db, repos: repos, now: time.Now}
}

func (r *SQLRegistry) Store(ctx context.Context, rec *models.RefreshToken) error {
	return r.repos.RefreshTokens(r.db).Create(ctx, rec)
}

func (r *SQLRegistry) Lookup(ctx context.Context, token string) (*models.RefreshToken, error) {
	return r.repos.RefreshTokens(r.db).Find(ctx, token)
}

// Rotate runs the conditional delete and the insert in one transaction. When
// two callers race on the same token, the second DELETE waits on the row lock
// and then matches nothing.
func (r *SQLRegistry) Rotate(ctx context.Context, oldToken, accountID string, next *models.RefreshToken) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := r.repos.RefreshTokens(tx)

		consumed, err := repo.Consume(ctx, oldToken, accountID, r.now())
		if err != nil {
			return err
		}
		if !consumed {
			return common.ErrorUnauthorized
		}

		return repo.Create(ctx, next)
	})
}

func (r *SQLRegistry) Revoke(ctx context.Context, token string) error {
	return r.repos.RefreshTokens(r.db).Delete(ctx, token)
}

func (r *SQLRegistry) RevokeAll(ctx context.Context, accountID string) error {
	return r.repos.RefreshTokens(r.db).DeleteByAccount(ctx, accountID)
}

func (r *SQLRegistry) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.repos.RefreshTokens(r.db).DeleteExpired(ctx, now)
}
