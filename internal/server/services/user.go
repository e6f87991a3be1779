// Package services contains server-side business logic: the Credential
// Store, the Token Issuer with its refresh rotation, and UserService which
// composes them for the API layers.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/logging"
	"github.com/dmitrijs2005/hobbyvault/internal/server/metrics"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
)

// UserService provides authentication-related operations:
//   - Register: create an account and sign it in
//   - Login: verify credentials and mint tokens
//   - RefreshToken: rotate a refresh token
//   - Logout: revoke a refresh token
//   - DeleteAccount: remove the account and every outstanding refresh token
type UserService struct {
	credentials *Credentials
	issuer      *TokenIssuer
	metrics     *metrics.Metrics
	logger      logging.Logger
}

func NewUserService(c *Credentials, i *TokenIssuer, m *metrics.Metrics, logger logging.Logger) *UserService {
	return &UserService{
		credentials: c,
		issuer:      i,
		metrics:     m,
		logger:      logger.With("module", "user_service"),
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, common.ErrorUnauthorized):
		return metrics.OutcomeDenied
	case errors.Is(err, common.ErrorConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, common.ErrorValidation):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

func (s *UserService) record(ctx context.Context, op string, err error) {
	o := outcome(err)
	s.metrics.Auth(op, o)

	switch o {
	case metrics.OutcomeSuccess:
	case metrics.OutcomeError:
		s.logger.Error(ctx, op+" failed", "error", err)
	default:
		s.logger.Warn(ctx, op+" rejected", "reason", err)
	}
}

func (s *UserService) Register(ctx context.Context, email, plain string) (account *models.Account, pair *TokenPair, err error) {
	defer func() { s.record(ctx, "register", err) }()

	account, err = s.credentials.CreateAccount(ctx, email, plain)
	if err != nil {
		return nil, nil, err
	}

	pair, err = s.issuer.IssuePair(ctx, account)
	if err != nil {
		return nil, nil, fmt.Errorf("error issuing tokens: %w", err)
	}

	s.logger.Info(ctx, "account registered", "account_id", account.ID)
	return account, pair, nil
}

func (s *UserService) Login(ctx context.Context, email, plain string) (account *models.Account, pair *TokenPair, err error) {
	defer func() { s.record(ctx, "login", err) }()

	if err = ValidateLogin(NormalizeEmail(email), plain); err != nil {
		return nil, nil, err
	}

	account, err = s.credentials.VerifyCredentials(ctx, email, plain)
	if err != nil {
		return nil, nil, err
	}

	pair, err = s.issuer.IssuePair(ctx, account)
	if err != nil {
		return nil, nil, fmt.Errorf("error issuing tokens: %w", err)
	}
	return account, pair, nil
}

func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (pair *TokenPair, err error) {
	defer func() { s.record(ctx, "refresh", err) }()

	if refreshToken == "" {
		return nil, &common.ValidationError{Fields: map[string]string{"refreshToken": "is required"}}
	}
	return s.issuer.Exchange(ctx, refreshToken)
}

// Logout never fails from the caller's point of view. Storage errors are
// logged and swallowed so the response cannot reveal anything about the token.
func (s *UserService) Logout(ctx context.Context, refreshToken string) {
	err := s.issuer.Revoke(ctx, refreshToken)
	s.record(ctx, "logout", err)
}

// DeleteAccount revokes all refresh tokens first so no backend keeps a live
// token for a removed account.
func (s *UserService) DeleteAccount(ctx context.Context, accountID string) (err error) {
	defer func() { s.record(ctx, "delete_account", err) }()

	if err = s.issuer.RevokeAll(ctx, accountID); err != nil {
		return fmt.Errorf("error revoking refresh tokens: %w", err)
	}
	if err = s.credentials.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	s.logger.Info(ctx, "account deleted", "account_id", accountID)
	return nil
}
