package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
	"github.com/dmitrijs2005/hobbyvault/internal/server/password"
	"github.com/dmitrijs2005/hobbyvault/internal/server/repositories/accounts"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// dummyPassword feeds the hash compared against when an email is unknown.
const dummyPassword = "hobbyvault-timing-equalizer"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Passwords are accepted between 8 and 128 characters.
type signupInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=128"`
}

type loginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateSignup checks a new email/password pair.
func ValidateSignup(email, plain string) error {
	return validateInput(signupInput{Email: email, Password: plain})
}

// ValidateLogin only checks shape: length rules for new passwords do not
// apply to sign-in attempts.
func ValidateLogin(email, plain string) error {
	return validateInput(loginInput{Email: email, Password: plain})
}

// validateInput returns a *common.ValidationError naming each bad field.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	ve := &common.ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[strings.ToLower(fe.Field())] = describe(fe)
	}
	return ve
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

// Credentials is the Credential Store: account creation and password checks.
type Credentials struct {
	accounts  accounts.Repository
	hasher    *password.Hasher
	dummyHash string
}

func NewCredentials(repo accounts.Repository, hasher *password.Hasher) (*Credentials, error) {
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("error preparing dummy hash: %w", err)
	}
	return &Credentials{accounts: repo, hasher: hasher, dummyHash: dummy}, nil
}

// CreateAccount hashes the password and inserts the account. Email
// uniqueness comes from the accounts_email_key constraint, so two concurrent
// signups for one address yield one account and one common.ErrorConflict.
func (c *Credentials) CreateAccount(ctx context.Context, email, plain string) (*models.Account, error) {
	email = NormalizeEmail(email)
	if err := ValidateSignup(email, plain); err != nil {
		return nil, err
	}

	hash, err := c.hasher.Hash(plain)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	account := &models.Account{ID: uuid.NewString(), Email: email, PasswordHash: hash}
	created, err := c.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}
	return created, nil
}

// VerifyCredentials returns the account when plain matches. An unknown email
// and a wrong password both yield common.ErrorUnauthorized after one argon2
// evaluation each.
func (c *Credentials) VerifyCredentials(ctx context.Context, email, plain string) (*models.Account, error) {
	account, err := c.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = c.hasher.Verify(plain, c.dummyHash)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}

	ok, err := c.hasher.Verify(plain, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return account, nil
}

func (c *Credentials) DeleteAccount(ctx context.Context, accountID string) error {
	if err := c.accounts.Delete(ctx, accountID); err != nil {
		return fmt.Errorf("error deleting account: %w", err)
	}
	return nil
}
