package registry

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
)

// MemoryRegistry is a process-local registry. It is used by tests and by
// single-instance deployments configured with the memory backend.
type MemoryRegistry struct {
	mu      sync.Mutex
	records map[string]models.RefreshToken
	now     func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		records: make(map[string]models.RefreshToken),
		now:     time.Now,
	}
}

func (r *MemoryRegistry) Store(_ context.Context, rec *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(rec)
}

func (r *MemoryRegistry) insertLocked(rec *models.RefreshToken) error {
	if _, ok := r.records[rec.Token]; ok {
		return common.ErrorConflict
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	r.records[rec.Token] = *rec
	return nil
}

func (r *MemoryRegistry) Lookup(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rec, nil
}

func (r *MemoryRegistry) Rotate(_ context.Context, oldToken, accountID string, next *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[oldToken]
	if !ok || rec.AccountID != accountID {
		return common.ErrorUnauthorized
	}
	if rec.Expired(r.now()) {
		delete(r.records, oldToken)
		return common.ErrorUnauthorized
	}
	if _, taken := r.records[next.Token]; taken {
		return common.ErrorConflict
	}

	delete(r.records, oldToken)
	return r.insertLocked(next)
}

func (r *MemoryRegistry) Revoke(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, token)
	return nil
}

func (r *MemoryRegistry) RevokeAll(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, rec := range r.records {
		if rec.AccountID == accountID {
			delete(r.records, token)
		}
	}
	return nil
}

func (r *MemoryRegistry) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for token, rec := range r.records {
		if rec.Expired(now) {
			delete(r.records, token)
			n++
		}
	}
	return n, nil
}

// Len reports how many records are held, expired or not.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
