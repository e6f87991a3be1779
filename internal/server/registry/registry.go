// Package registry is the Refresh Registry: the set of outstanding refresh
// tokens, each owned by one account and usable exactly once.
//
// Three backends share one contract. Rotate is the only state transition that
// consumes a live token, and it is always a single conditional step:
//
//	SQLRegistry    one transaction, conditional DELETE ... RETURNING then INSERT
//	RedisRegistry  one Lua script doing check, delete and insert
//	MemoryRegistry one critical section under a mutex
package registry

import (
	"context"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
)

type Registry interface {
	// Store records a freshly issued refresh token. A token string that is
	// already present yields common.ErrorConflict.
	Store(ctx context.Context, rec *models.RefreshToken) error

	// Lookup returns the record for the exact token string, or
	// common.ErrorNotFound.
	Lookup(ctx context.Context, token string) (*models.RefreshToken, error)

	// Rotate retires oldToken and stores next in one atomic step. It succeeds
	// only if a live, unexpired record for oldToken owned by accountID existed
	// and was removed by this call; otherwise it returns
	// common.ErrorUnauthorized and next is not stored.
	Rotate(ctx context.Context, oldToken, accountID string, next *models.RefreshToken) error

	// Revoke deletes the record if present. Unknown tokens are not an error.
	Revoke(ctx context.Context, token string) error

	// RevokeAll deletes every record owned by accountID.
	RevokeAll(ctx context.Context, accountID string) error

	// DeleteExpired purges records expired at now and reports how many went.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
