package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/logging"
	"github.com/dmitrijs2005/hobbyvault/internal/server/auth"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
	"github.com/dmitrijs2005/hobbyvault/internal/server/password"
	"github.com/dmitrijs2005/hobbyvault/internal/server/registry"
	"github.com/stretchr/testify/require"
)

// fakeAccountsRepo enforces email uniqueness the way the table constraint does
// and records calls.
type fakeAccountsRepo struct {
	mu      sync.Mutex
	byEmail map[string]*models.Account
	getErr  error
	creates int
	deletes []string
}

func newFakeAccountsRepo() *fakeAccountsRepo {
	return &fakeAccountsRepo{byEmail: map[string]*models.Account{}}
}

func (f *fakeAccountsRepo) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if _, ok := f.byEmail[a.Email]; ok {
		return nil, common.ErrorConflict
	}
	cp := *a
	cp.CreatedAt = time.Now()
	f.byEmail[a.Email] = &cp
	return &cp, nil
}

func (f *fakeAccountsRepo) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountsRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	for email, a := range f.byEmail {
		if a.ID == id {
			delete(f.byEmail, email)
		}
	}
	return nil
}

func (f *fakeAccountsRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byEmail)
}

var testHashParams = password.Params{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestCredentials(t *testing.T) (*Credentials, *fakeAccountsRepo) {
	t.Helper()
	h, err := password.NewHasher(testHashParams)
	require.NoError(t, err)
	repo := newFakeAccountsRepo()
	c, err := NewCredentials(repo, h)
	require.NoError(t, err)
	return c, repo
}

type testKeys struct {
	access  *auth.Codec
	refresh *auth.Codec
}

func newTestKeys(t *testing.T) testKeys {
	t.Helper()
	access, err := auth.NewCodec([]byte("access-key-for-tests"))
	require.NoError(t, err)
	refresh, err := auth.NewCodec([]byte("refresh-key-for-tests"))
	require.NoError(t, err)
	return testKeys{access: access, refresh: refresh}
}

func newTestIssuer(t *testing.T) (*TokenIssuer, *registry.MemoryRegistry, testKeys) {
	t.Helper()
	keys := newTestKeys(t)
	reg := registry.NewMemoryRegistry()
	return NewTokenIssuer(keys.access, keys.refresh, reg, 15*time.Minute, 7*24*time.Hour), reg, keys
}

func newTestUserService(t *testing.T) (*UserService, *fakeAccountsRepo, *registry.MemoryRegistry, testKeys) {
	t.Helper()
	creds, repo := newTestCredentials(t)
	issuer, reg, keys := newTestIssuer(t)
	return NewUserService(creds, issuer, nil, logging.Discard()), repo, reg, keys
}
