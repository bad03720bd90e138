package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/fintrack/internal/apperr"
	"github.com/mmynk/fintrack/internal/models"
)

type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	profiles map[string]*models.UserProfile
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		accounts: make(map[string]*models.Account),
		profiles: make(map[string]*models.UserProfile),
	}
}

func (m *memAccounts) CreateAccount(ctx context.Context, a *models.Account, p *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.Email] = a
	m.profiles[a.ID] = p
	return nil
}

func (m *memAccounts) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[email], nil
}

func (m *memAccounts) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	store := newMemAccounts()
	a := NewPasswordAuthenticator(store)

	account, err := a.Register(ctx, " Ada@X.io ", "longenough")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if account.ID == "" || account.Email != "ada@x.io" {
		t.Errorf("unexpected account: %+v", account)
	}
	if account.PasswordHash == "longenough" {
		t.Error("password stored in clear text")
	}
	profile := store.profiles[account.ID]
	if profile == nil || profile.Email != "ada@x.io" {
		t.Fatalf("expected profile to be created, got %+v", profile)
	}
	if _, err := time.Parse(time.RFC3339, profile.CreatedAt); err != nil {
		t.Errorf("profile createdAt is not RFC 3339: %q", profile.CreatedAt)
	}

	tests := []struct {
		name     string
		email    string
		password string
		code     string
	}{
		{"duplicate email", "ada@x.io", "longenough", apperr.CodeEmailInUse},
		{"weak password", "bob@x.io", "short", apperr.CodeWeakPassword},
		{"invalid email", "not-an-email", "longenough", apperr.CodeInvalidEmail},
		{"empty email", "", "longenough", apperr.CodeInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Register(ctx, tt.email, tt.password)
			if got := apperr.CodeOf(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	a := NewPasswordAuthenticator(newMemAccounts())
	registered, err := a.Register(ctx, "ada@x.io", "longenough")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	account, err := a.Authenticate(ctx, "ADA@x.io", "longenough")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if account.ID != registered.ID {
		t.Errorf("authenticated %s, want %s", account.ID, registered.ID)
	}

	if _, err := a.Authenticate(ctx, "ada@x.io", "wrongpassword"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("expected ErrWrongPassword, got %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@x.io", "longenough"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthenticateThrottles(t *testing.T) {
	ctx := context.Background()
	a := NewPasswordAuthenticator(newMemAccounts())
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	if _, err := a.Register(ctx, "ada@x.io", "longenough"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := a.Authenticate(ctx, "ada@x.io", "wrongpassword"); !errors.Is(err, ErrWrongPassword) {
			t.Fatalf("attempt %d: expected ErrWrongPassword, got %v", i, err)
		}
	}

	// Even the right password is refused while throttled.
	if _, err := a.Authenticate(ctx, "ada@x.io", "longenough"); !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests, got %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := a.Authenticate(ctx, "ada@x.io", "longenough"); err != nil {
		t.Fatalf("expected sign-in to succeed after cooldown, got %v", err)
	}
}
