package credentials

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/dmitrijs2005/hobbyvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/dbx"
)

// TokenStore persists the pair between process runs. Load returns a zero
// Tokens when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, t Tokens) error
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu     sync.Mutex
	tokens Tokens
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens, nil
}

func (s *MemoryStore) Save(ctx context.Context, t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	return s.Save(ctx, Tokens{})
}

// Metadata keys holding the pair.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// MetadataStore keeps the pair in the local SQLite metadata table. Both keys
// are written in one transaction.
type MetadataStore struct {
	db *sql.DB
}

func NewMetadataStore(db *sql.DB) *MetadataStore {
	return &MetadataStore{db: db}
}

func (s *MetadataStore) Load(ctx context.Context) (Tokens, error) {
	repo := metadata.NewSQLiteRepository(s.db)

	access, err := repo.Get(ctx, AccessTokenKey)
	if errors.Is(err, common.ErrorNotFound) {
		return Tokens{}, nil
	}
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := repo.Get(ctx, RefreshTokenKey)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *MetadataStore) Save(ctx context.Context, t Tokens) error {
	if t.Empty() {
		return s.Clear(ctx)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, AccessTokenKey, t.AccessToken); err != nil {
			return err
		}
		return repo.Set(ctx, RefreshTokenKey, t.RefreshToken)
	})
}

func (s *MetadataStore) Clear(ctx context.Context) error {
	return metadata.NewSQLiteRepository(s.db).Delete(ctx, AccessTokenKey, RefreshTokenKey)
}
