package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccount_ThenVerify(t *testing.T) {
	c, _ := newTestCredentials(t)
	ctx := context.Background()

	acc, err := c.CreateAccount(ctx, "  A@X.com ", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", acc.Email)
	assert.NotEmpty(t, acc.ID)
	assert.NotContains(t, acc.PasswordHash, "Secret123!")

	got, err := c.VerifyCredentials(ctx, "a@x.com", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)

	got, err = c.VerifyCredentials(ctx, "A@X.COM", "Secret123!")
	require.NoError(t, err, "lookup is case-insensitive")
	assert.Equal(t, acc.ID, got.ID)

	_, err = c.VerifyCredentials(ctx, "a@x.com", "Secret123?")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestVerifyCredentials_UnknownAndWrongLookTheSame(t *testing.T) {
	c, _ := newTestCredentials(t)
	ctx := context.Background()

	_, err := c.CreateAccount(ctx, "a@x.com", "Secret123!")
	require.NoError(t, err)

	_, wrongPassword := c.VerifyCredentials(ctx, "a@x.com", "wrong")
	_, unknownEmail := c.VerifyCredentials(ctx, "nobody@x.com", "wrong")

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, wrongPassword, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestVerifyCredentials_StorageErrorIsNotUnauthorized(t *testing.T) {
	c, repo := newTestCredentials(t)
	repo.getErr = errors.New("db error: conn refused")

	_, err := c.VerifyCredentials(context.Background(), "a@x.com", "Secret123!")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
}

func TestCreateAccount_DuplicateIsConflict(t *testing.T) {
	c, repo := newTestCredentials(t)
	ctx := context.Background()

	_, err := c.CreateAccount(ctx, "a@x.com", "Secret123!")
	require.NoError(t, err)

	_, err = c.CreateAccount(ctx, "A@x.com", "Another123!")
	assert.ErrorIs(t, err, common.ErrorConflict)
	assert.Equal(t, 1, repo.count())
}

func TestCreateAccount_ConcurrentSignupsOneWins(t *testing.T) {
	c, repo := newTestCredentials(t)

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		conf int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.CreateAccount(context.Background(), "race@x.com", "Secret123!")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, common.ErrorConflict):
				conf++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conf)
	assert.Equal(t, 1, repo.count())
	assert.Equal(t, n, repo.creates, "every signup reaches the constraint; none is pre-checked")
}

func TestCreateAccount_Validation(t *testing.T) {
	c, repo := newTestCredentials(t)

	tests := []struct {
		name      string
		email     string
		password  string
		badFields []string
	}{
		{"empty", "", "", []string{"email", "password"}},
		{"bad email", "not-an-email", "Secret123!", []string{"email"}},
		{"short password", "a@x.com", "short", []string{"password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreateAccount(context.Background(), tt.email, tt.password)
			require.ErrorIs(t, err, common.ErrorValidation)

			var ve *common.ValidationError
			require.ErrorAs(t, err, &ve)
			for _, f := range tt.badFields {
				assert.Contains(t, ve.Fields, f)
			}
			assert.Len(t, ve.Fields, len(tt.badFields))
		})
	}
	assert.Equal(t, 0, repo.creates)
}

func TestValidateLogin_NoLengthRule(t *testing.T) {
	assert.NoError(t, ValidateLogin("a@x.com", "x"))
	assert.ErrorIs(t, ValidateLogin("a@x.com", ""), common.ErrorValidation)
	assert.ErrorIs(t, ValidateLogin("nope", "x"), common.ErrorValidation)
}

func TestDeleteAccount(t *testing.T) {
	c, repo := newTestCredentials(t)
	ctx := context.Background()

	acc, err := c.CreateAccount(ctx, "a@x.com", "Secret123!")
	require.NoError(t, err)
	require.NoError(t, c.DeleteAccount(ctx, acc.ID))

	_, err = c.VerifyCredentials(ctx, "a@x.com", "Secret123!")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Equal(t, []string{acc.ID}, repo.deletes)
}
