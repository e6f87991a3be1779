package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/server/auth"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
	"github.com/dmitrijs2005/hobbyvault/internal/server/registry"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenIssuer mints access/refresh pairs and runs the refresh rotation.
type TokenIssuer struct {
	access     *auth.Codec
	refresh    *auth.Codec
	registry   registry.Registry
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(access, refresh *auth.Codec, reg registry.Registry, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		access:     access,
		refresh:    refresh,
		registry:   reg,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// denied wraps common.ErrorUnauthorized with a reason meant for logs only.
func denied(reason string) error {
	return fmt.Errorf("%w: %s", common.ErrorUnauthorized, reason)
}

// mintPair signs both tokens and prepares, without storing, the registry
// record for the refresh token.
func (i *TokenIssuer) mintPair(accountID, email string) (*TokenPair, *models.RefreshToken, error) {
	access, _, err := i.access.Sign(accountID, email, i.accessTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("error signing access token: %w", err)
	}
	refresh, claims, err := i.refresh.Sign(accountID, email, i.refreshTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("error signing refresh token: %w", err)
	}

	rec := &models.RefreshToken{
		Token:     refresh,
		AccountID: accountID,
		ExpiresAt: claims.ExpiresAt.Time,
		CreatedAt: i.now(),
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, rec, nil
}

// IssuePair stores exactly one registry record per call.
func (i *TokenIssuer) IssuePair(ctx context.Context, account *models.Account) (*TokenPair, error) {
	pair, rec, err := i.mintPair(account.ID, account.Email)
	if err != nil {
		return nil, err
	}
	if err := i.registry.Store(ctx, rec); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	return pair, nil
}

// Exchange trades a live refresh token for a new pair. The old record is
// retired and the new one stored by a single registry.Rotate, so of several
// concurrent exchanges of one token exactly one succeeds. Every rejection is
// common.ErrorUnauthorized.
func (i *TokenIssuer) Exchange(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := i.refresh.Verify(refreshToken)
	if err != nil {
		return nil, denied(err.Error())
	}

	rec, err := i.registry.Lookup(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, denied("unknown refresh token")
		}
		return nil, fmt.Errorf("error looking up refresh token: %w", err)
	}
	if rec.AccountID != claims.AccountID {
		return nil, denied("refresh token owner mismatch")
	}
	if rec.Expired(i.now()) {
		return nil, denied("refresh token record expired")
	}

	pair, next, err := i.mintPair(claims.AccountID, claims.Email)
	if err != nil {
		return nil, err
	}

	if err := i.registry.Rotate(ctx, refreshToken, claims.AccountID, next); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, denied("refresh token already consumed")
		}
		return nil, fmt.Errorf("error rotating refresh token: %w", err)
	}
	return pair, nil
}

// Revoke is idempotent and never reports whether the token was known.
func (i *TokenIssuer) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return i.registry.Revoke(ctx, refreshToken)
}

func (i *TokenIssuer) RevokeAll(ctx context.Context, accountID string) error {
	return i.registry.RevokeAll(ctx, accountID)
}
