package auth

import (
	"context"

	"github.com/mmynk/fintrack/internal/models"
)

// Authenticator defines the interface for identity provider implementations.
// This abstraction allows swapping between credential methods (password,
// federated sign-in, etc.) without changing the backend.
type Authenticator interface {
	// Register creates a new account with the given email and credential,
	// together with the initial users/{uid} profile document.
	// Returns an apperr-coded error when registration is refused.
	Register(ctx context.Context, email, credential string) (*models.Account, error)

	// Authenticate verifies the credential and returns the matching account.
	Authenticate(ctx context.Context, email, credential string) (*models.Account, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
