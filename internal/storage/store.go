// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/fintrack/internal/models"
)

// ErrDuplicate is returned when a unique key (such as an account email) already exists.
var ErrDuplicate = errors.New("duplicate key")

// Store defines the interface for the backend's document storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// Lookups of absent documents return nil and no error.
type Store interface {
	// CreateAccount persists a credential record together with its users/{uid}
	// profile document, atomically.
	CreateAccount(ctx context.Context, account *models.Account, profile *models.UserProfile) error

	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)

	// GetProfile reads users/{uid}.
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)

	// PutProfile creates or replaces users/{uid}.
	PutProfile(ctx context.Context, uid string, profile *models.UserProfile) error

	// CreateTransaction persists a new transaction document.
	// The ID and CreatedAt fields will be populated by the store.
	CreateTransaction(ctx context.Context, tx *models.Transaction) error

	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)

	// DeleteTransaction removes a transaction. Deleting an absent id is not an error.
	DeleteTransaction(ctx context.Context, id string) error

	// ListTransactionsByOwner returns every transaction whose userId equals ownerID.
	ListTransactionsByOwner(ctx context.Context, ownerID string) ([]models.Transaction, error)

	// Close releases any resources held by the store.
	Close() error
}
