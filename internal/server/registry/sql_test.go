package registry

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
	"github.com/dmitrijs2005/hobbyvault/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	consumeQ = `(?s)^\s*DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1\s+AND\s+account_id\s*=\s*\$2\s+AND\s+expires_at\s*>\s*\$3\s+RETURNING\s+token\s*$`
	insertQ  = `(?s)^\s*INSERT\s+INTO\s+refresh_tokens\b.*RETURNING\s+created_at\s*$`
)

func newSQLRegistry(t *testing.T) (*SQLRegistry, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := NewSQLRegistry(db, repomanager.NewPostgresRepositoryManager())
	reg.now = func() time.Time { return now }
	return reg, mock, now
}

func TestSQLRegistry_RotateCommits(t *testing.T) {
	reg, mock, now := newSQLRegistry(t)

	next := &models.RefreshToken{Token: "new", AccountID: "acc", ExpiresAt: now.Add(time.Hour)}

	mock.ExpectBegin()
	mock.ExpectQuery(consumeQ).
		WithArgs("old", "acc", now).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("old"))
	mock.ExpectQuery(insertQ).
		WithArgs("new", "acc", next.ExpiresAt).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	require.NoError(t, reg.Rotate(context.Background(), "old", "acc", next))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRegistry_RotateNothingConsumedRollsBack(t *testing.T) {
	reg, mock, now := newSQLRegistry(t)

	mock.ExpectBegin()
	mock.ExpectQuery(consumeQ).
		WithArgs("old", "acc", now).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := reg.Rotate(context.Background(), "old", "acc", &models.RefreshToken{Token: "new", AccountID: "acc"})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRegistry_RotateInsertFailureRollsBack(t *testing.T) {
	reg, mock, now := newSQLRegistry(t)

	mock.ExpectBegin()
	mock.ExpectQuery(consumeQ).
		WithArgs("old", "acc", now).
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("old"))
	mock.ExpectQuery(insertQ).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := reg.Rotate(context.Background(), "old", "acc", &models.RefreshToken{Token: "new", AccountID: "acc", ExpiresAt: now})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRegistry_RevokeDeletes(t *testing.T) {
	reg, mock, _ := newSQLRegistry(t)

	mock.ExpectExec(`DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1`).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, reg.Revoke(context.Background(), "tok"))
	require.NoError(t, mock.ExpectationsWereMet())
}
