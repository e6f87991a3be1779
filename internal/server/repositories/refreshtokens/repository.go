package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	// Consume deletes the row only if it is owned by accountID and still live
	// at now. It reports whether this call removed it.
	Consume(ctx context.Context, token, accountID string, now time.Time) (bool, error)
	Delete(ctx context.Context, token string) error
	DeleteByAccount(ctx context.Context, accountID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
