// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/accountvault/internal/domain/model"
)

// Sentinel errors returned by AccountStore implementations.
var (
	// ErrAccountNotFound indicates the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEncryptionKeyNotSet is returned when an account carrying secrets is
	// written but ACCOUNTVAULT_SECRET_KEY has not been configured.
	ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set ACCOUNTVAULT_SECRET_KEY")
)

// AccountStore defines the driven port for account persistence.
// The adapter is responsible for encrypting secrets; this interface operates on
// plaintext values at the domain boundary.
type AccountStore interface {
	// Create inserts a new account. The caller assigns ID and UpdatedAt.
	Create(ctx context.Context, account model.Account) error

	// Update replaces every field of an existing account.
	// Returns ErrAccountNotFound if no account has the given ID.
	Update(ctx context.Context, account model.Account) error

	// Get returns the account with the given ID, or ErrAccountNotFound.
	Get(ctx context.Context, id string) (model.Account, error)

	// ListAll returns all accounts ordered by handle.
	ListAll(ctx context.Context) ([]model.Account, error)

	// Delete removes an account. Returns ErrAccountNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
