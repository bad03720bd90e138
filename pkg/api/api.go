// Package api defines the fintrack.v1.BackendService wire contract: message
// types, procedure names, the JSON codec, and Connect handler and client
// constructors.
package api

import "github.com/mmynk/fintrack/internal/models"

// ErrorCodeHeader carries the canonical error code on failed calls.
const ErrorCodeHeader = "Fintrack-Error-Code"

// APIKeyHeader carries the project API key on every call.
const APIKeyHeader = "X-Fintrack-Api-Key"

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	Principal *models.Principal `json:"principal"`
	Token     string            `json:"token"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Principal *models.Principal `json:"principal"`
	Token     string            `json:"token"`
}

type ReadProfileRequest struct {
	UserID string `json:"userId"`
}

// ReadProfileResponse carries a nil Profile when users/{uid} is absent.
type ReadProfileResponse struct {
	Profile *models.UserProfile `json:"profile,omitempty"`
}

type WriteProfileRequest struct {
	UserID  string              `json:"userId"`
	Profile *models.UserProfile `json:"profile"`
}

type WriteProfileResponse struct{}

type AddTransactionRequest struct {
	Draft models.TransactionDraft `json:"draft"`
}

type AddTransactionResponse struct {
	ID string `json:"id"`
}

type DeleteTransactionRequest struct {
	ID string `json:"id"`
}

type DeleteTransactionResponse struct{}

type WatchTransactionsRequest struct {
	OwnerID string `json:"ownerId"`
}

// TransactionSnapshot is one complete result set of a live query.
type TransactionSnapshot struct {
	Transactions []models.Transaction `json:"transactions"`
}
