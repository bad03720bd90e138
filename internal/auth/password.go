package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/mmynk/fintrack/internal/apperr"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/storage"
)

// MinPasswordLength is the shortest password the identity provider accepts.
const MinPasswordLength = 8

var (
	ErrWrongPassword   = apperr.New(apperr.CodeWrongPassword, "wrong password")
	ErrUserNotFound    = apperr.New(apperr.CodeUserNotFound, "no account for this email")
	ErrInvalidEmail    = apperr.New(apperr.CodeInvalidEmail, "invalid email address")
	ErrWeakPassword    = apperr.New(apperr.CodeWeakPassword, "password must be at least 8 characters")
	ErrEmailExists     = apperr.New(apperr.CodeEmailInUse, "email already registered")
	ErrTooManyRequests = apperr.New(apperr.CodeTooManyRequests, "too many failed sign-in attempts")
)

// AccountStorage defines the persistence the identity provider needs.
// This allows the authenticator to be independent of the storage implementation.
type AccountStorage interface {
	CreateAccount(ctx context.Context, account *models.Account, profile *models.UserProfile) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
// Repeated failures for one email are throttled.
type PasswordAuthenticator struct {
	storage AccountStorage
	now     func() time.Time

	mu       sync.Mutex
	failures map[string]*rate.Limiter
}

// maxTrackedEmails bounds the throttling table.
const maxTrackedEmails = 10000

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage AccountStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		storage:  storage,
		now:      time.Now,
		failures: make(map[string]*rate.Limiter),
	}
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a new account with a hashed password and an initial profile.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, credential string) (*models.Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	existing, err := a.storage.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := a.now().UTC()
	account := &models.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    now.Unix(),
	}
	profile := &models.UserProfile{
		Email:     email,
		CreatedAt: now.Format(time.RFC3339),
	}

	if err := a.storage.CreateAccount(ctx, account, profile); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// Authenticate verifies the email and password, returning the account if valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (*models.Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if a.throttled(email) {
		return nil, ErrTooManyRequests
	}

	account, err := a.storage.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if account == nil {
		a.recordFailure(email)
		return nil, ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(credential)); err != nil {
		a.recordFailure(email)
		return nil, ErrWrongPassword
	}

	a.reset(email)
	return account, nil
}

func (a *PasswordAuthenticator) throttled(email string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.failures[email]
	return ok && l.TokensAt(a.now()) < 1
}

// recordFailure spends one token; five failures inside a minute lock the email
// until tokens refill at one every twelve seconds.
func (a *PasswordAuthenticator) recordFailure(email string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.failures[email]
	if !ok {
		if len(a.failures) >= maxTrackedEmails {
			a.failures = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(rate.Every(12*time.Second), 5)
		a.failures[email] = l
	}
	l.AllowN(a.now(), 1)
}

func (a *PasswordAuthenticator) reset(email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.failures, email)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
