package accounts

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_CRUD(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	acc, err := repo.Create(ctx, &models.Account{ID: "id-1", Email: "a@x.com", PasswordHash: "h"})
	require.NoError(t, err)
	require.False(t, acc.CreatedAt.IsZero())

	got, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "id-1", got.ID)

	_, err = repo.Create(ctx, &models.Account{ID: "id-2", Email: "a@x.com", PasswordHash: "h"})
	require.ErrorIs(t, err, common.ErrorConflict)

	require.NoError(t, repo.Delete(ctx, "id-1"))
	require.NoError(t, repo.Delete(ctx, "id-1"))
	_, err = repo.GetByEmail(ctx, "a@x.com")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_ConcurrentCreateSameEmail(t *testing.T) {
	repo := NewMemoryRepository()

	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Create(context.Background(), &models.Account{ID: "x", Email: "race@x.com"}); err == nil {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), won.Load())
	require.Equal(t, 1, repo.Len())
}
