// Package accounts declares and implements persistence for Account records.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
)

type Repository interface {
	// Create inserts a new account. A duplicate email yields common.ErrorConflict;
	// uniqueness is enforced by the storage constraint, never by a prior read.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// GetByEmail looks up by normalized email, or returns common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// Delete removes the account. Deleting a missing account is not an error.
	Delete(ctx context.Context, id string) error
}
