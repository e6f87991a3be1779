package credentials

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/hobbyvault/internal/logging"

	_ "modernc.org/sqlite"
)

func setupMetadataDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)
	return db
}

func TestMetadataStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMetadataStore(setupMetadataDB(t))

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	require.NoError(t, s.Save(ctx, oldPair))
	require.NoError(t, s.Save(ctx, newPair))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, newPair, got)

	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestMetadataStore_SaveEmptyClears(t *testing.T) {
	ctx := context.Background()
	s := NewMetadataStore(setupMetadataDB(t))

	require.NoError(t, s.Save(ctx, oldPair))
	require.NoError(t, s.Save(ctx, Tokens{}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestMetadataStore_SurvivesManagerRestart(t *testing.T) {
	ctx := context.Background()
	db := setupMetadataDB(t)

	m1, err := NewManager(ctx, NewMetadataStore(db), nil, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, m1.Set(ctx, oldPair))

	m2, err := NewManager(ctx, NewMetadataStore(db), nil, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, oldPair, m2.Tokens())
}

func TestMetadataStore_Errors(t *testing.T) {
	db := setupMetadataDB(t)
	s := NewMetadataStore(db)
	require.NoError(t, db.Close())

	_, err := s.Load(context.Background())
	require.Error(t, err)
	require.Error(t, s.Save(context.Background(), oldPair))

	_, err = NewManager(context.Background(), s, nil, logging.Discard())
	require.Error(t, err)
}
