// Package backend is the managed identity provider and document store that
// fintrack clients talk to.
//
// It holds no business logic: it authenticates principals, stores the
// users/{uid} and transactions/{id} documents, enforces the access rules and
// fans live query snapshots out to watchers.
package backend

import (
	"context"
	"log/slog"

	"github.com/mmynk/fintrack/internal/apperr"
	"github.com/mmynk/fintrack/internal/auth"
	"github.com/mmynk/fintrack/internal/metrics"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/storage"
)

// Session is the result of a successful sign-in or registration.
type Session struct {
	Principal *models.Principal
	// Token is the signed ID token presented on later calls.
	Token string
}

// Backend implements the identity and document operations.
type Backend struct {
	store   storage.Store
	authn   auth.Authenticator
	tokens  *auth.JWTManager
	hub     *hub
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithMetrics instruments the backend.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Backend) { b.metrics = m }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// New creates a backend over the given store.
func New(store storage.Store, authn auth.Authenticator, tokens *auth.JWTManager, opts ...Option) *Backend {
	b := &Backend{
		store:  store,
		authn:  authn,
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.hub = newHub(store, b.metrics, b.logger)
	return b
}

// SignIn authenticates an email and password and issues an ID token.
func (b *Backend) SignIn(ctx context.Context, email, password string) (*Session, error) {
	account, err := b.authn.Authenticate(ctx, email, password)
	if err != nil {
		b.metrics.AuthAttempt("signin", outcome(err))
		b.logger.Warn("Sign-in failed", "email", email, "error", err)
		return nil, err
	}
	b.metrics.AuthAttempt("signin", "ok")
	return b.issue(account)
}

// Register creates a principal and its initial users/{uid} document, then
// issues an ID token.
func (b *Backend) Register(ctx context.Context, email, password string) (*Session, error) {
	account, err := b.authn.Register(ctx, email, password)
	if err != nil {
		b.metrics.AuthAttempt("register", outcome(err))
		b.logger.Warn("Registration failed", "email", email, "error", err)
		return nil, err
	}
	b.metrics.AuthAttempt("register", "ok")
	b.metrics.Write("users", "create")
	b.logger.Info("Principal registered", "user_id", account.ID, "email", account.Email)
	return b.issue(account)
}

func (b *Backend) issue(account *models.Account) (*Session, error) {
	token, err := b.tokens.Generate(account)
	if err != nil {
		b.logger.Error("Failed to generate token", "user_id", account.ID, "error", err)
		return nil, apperr.Wrap(apperr.CodeInternal, err)
	}
	return &Session{Principal: account.Principal(), Token: token}, nil
}

// Verify resolves an ID token to its principal. A token whose account no
// longer exists is treated as expired.
func (b *Backend) Verify(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := b.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	account, err := b.store.GetAccountByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err)
	}
	if account == nil {
		return nil, auth.ErrInvalidToken
	}
	return account.Principal(), nil
}

// ReadProfile returns users/{uid}, or nil when the document is absent.
func (b *Backend) ReadProfile(ctx context.Context, caller *models.Principal, uid string) (*models.UserProfile, error) {
	if err := allowProfile(caller, uid); err != nil {
		return nil, err
	}
	profile, err := b.store.GetProfile(ctx, uid)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err)
	}
	return profile, nil
}

// WriteProfile creates or replaces users/{uid}.
func (b *Backend) WriteProfile(ctx context.Context, caller *models.Principal, uid string, profile *models.UserProfile) error {
	if err := allowProfile(caller, uid); err != nil {
		return err
	}
	if profile == nil {
		return apperr.New(apperr.CodeInvalidArgument, "profile document is required")
	}
	if err := b.store.PutProfile(ctx, uid, profile); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err)
	}
	b.metrics.Write("users", "put")
	return nil
}

// AddTransaction stores a new transaction document stamped with the server
// time and returns its id. Watchers of the owner receive a fresh snapshot.
func (b *Backend) AddTransaction(ctx context.Context, caller *models.Principal, draft models.TransactionDraft) (string, error) {
	if err := allowOwner(caller, draft.UserID); err != nil {
		return "", err
	}
	if err := checkDraft(draft); err != nil {
		return "", err
	}

	tx := &models.Transaction{
		UserID:      draft.UserID,
		Amount:      draft.Amount,
		Category:    draft.Category,
		Date:        draft.Date,
		Description: draft.Description,
		Type:        draft.Type,
	}
	if err := b.store.CreateTransaction(ctx, tx); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err)
	}
	b.metrics.Write("transactions", "create")
	b.logger.Debug("Transaction added", "id", tx.ID, "user_id", tx.UserID)

	b.hub.refresh(ctx, tx.UserID)
	return tx.ID, nil
}

// DeleteTransaction removes a transaction. Deleting an absent id succeeds.
func (b *Backend) DeleteTransaction(ctx context.Context, caller *models.Principal, id string) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	tx, err := b.store.GetTransaction(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err)
	}
	if tx == nil {
		return nil
	}
	if err := allowOwner(caller, tx.UserID); err != nil {
		return err
	}

	if err := b.store.DeleteTransaction(ctx, id); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err)
	}
	b.metrics.Write("transactions", "delete")
	b.logger.Debug("Transaction deleted", "id", id, "user_id", tx.UserID)

	b.hub.refresh(ctx, tx.UserID)
	return nil
}

// Watch opens a live query over the transactions owned by ownerID.
// The first snapshot is available from the returned Watch immediately.
func (b *Backend) Watch(ctx context.Context, caller *models.Principal, ownerID string) (*Watch, error) {
	if err := allowOwner(caller, ownerID); err != nil {
		return nil, err
	}
	return b.hub.open(ctx, ownerID)
}

// Close closes the live queries and the underlying store.
func (b *Backend) Close() error {
	b.hub.closeAll()
	return b.store.Close()
}

func outcome(err error) string {
	if code := apperr.CodeOf(err); code != "" {
		return code
	}
	return apperr.CodeInternal
}
