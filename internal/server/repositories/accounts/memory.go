package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
)

// MemoryRepository keeps accounts in process memory. The server uses it when
// no database DSN is configured; tests use it as a stand-in for Postgres.
type MemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]models.Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byEmail: make(map[string]models.Account)}
}

// Create checks and inserts under one lock, mirroring the unique constraint.
func (r *MemoryRepository) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[account.Email]; ok {
		return nil, common.ErrorConflict
	}
	account.CreatedAt = time.Now()
	r.byEmail[account.Email] = *account
	return account, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for email, a := range r.byEmail {
		if a.ID == id {
			delete(r.byEmail, email)
		}
	}
	return nil
}

func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEmail)
}
