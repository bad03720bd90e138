package adapter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmynk/fintrack/internal/apperr"
	"github.com/mmynk/fintrack/internal/backend"
	"github.com/mmynk/fintrack/internal/models"
)

// Ensure Local implements Adapter
var _ Adapter = (*Local)(nil)

// Local talks to a backend running in the same process. ID tokens are still
// issued and verified on every call, so expiry behaves as it does remotely.
type Local struct {
	backend *backend.Backend
	logger  *slog.Logger
	principals
}

// NewLocal creates an adapter over b.
func NewLocal(b *backend.Backend, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{backend: b, logger: logger}
}

func (l *Local) ObservePrincipal(fn func(*models.Principal)) Unsubscribe {
	return l.observe(fn)
}

func (l *Local) SignInWithPassword(ctx context.Context, email, password string) (*models.Principal, error) {
	session, err := l.backend.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	l.set(session.Principal, session.Token)
	return clonePrincipal(session.Principal), nil
}

func (l *Local) RegisterWithPassword(ctx context.Context, email, password string) (*models.Principal, error) {
	session, err := l.backend.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	l.set(session.Principal, session.Token)
	return clonePrincipal(session.Principal), nil
}

func (l *Local) SignOut(ctx context.Context) error {
	l.clear()
	return nil
}

// caller verifies the current ID token. An expired token signs the principal out.
func (l *Local) caller(ctx context.Context) (*models.Principal, error) {
	token := l.currentToken()
	if token == "" {
		return nil, nil
	}
	p, err := l.backend.Verify(ctx, token)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeTokenExpired {
			l.logger.Info("ID token expired", "error", err)
			l.expire(token)
		}
		return nil, err
	}
	return p, nil
}

func (l *Local) ReadUserProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	caller, err := l.caller(ctx)
	if err != nil {
		return nil, err
	}
	return l.backend.ReadProfile(ctx, caller, uid)
}

func (l *Local) WriteUserProfile(ctx context.Context, uid string, profile *models.UserProfile) error {
	caller, err := l.caller(ctx)
	if err != nil {
		return err
	}
	return l.backend.WriteProfile(ctx, caller, uid, profile)
}

func (l *Local) AddTransaction(ctx context.Context, draft models.TransactionDraft) (string, error) {
	caller, err := l.caller(ctx)
	if err != nil {
		return "", err
	}
	return l.backend.AddTransaction(ctx, caller, draft)
}

func (l *Local) DeleteTransaction(ctx context.Context, id string) error {
	caller, err := l.caller(ctx)
	if err != nil {
		return err
	}
	return l.backend.DeleteTransaction(ctx, caller, id)
}

// ObserveTransactions runs the live query on its own goroutine; fn is never
// called concurrently with itself.
func (l *Local) ObserveTransactions(ownerID string, fn func([]models.Transaction, error)) Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())
	s := &stream{cancel: cancel}

	go func() {
		defer cancel()

		caller, err := l.caller(ctx)
		if err != nil {
			if s.fail() {
				fn(nil, err)
			}
			return
		}
		watch, err := l.backend.Watch(ctx, caller, ownerID)
		if err != nil {
			if s.fail() {
				fn(nil, err)
			}
			return
		}
		defer watch.Close()

		for {
			txs, err := watch.Next(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, backend.ErrWatchClosed) {
					err = apperr.New(apperr.CodeNetwork, "live query closed by the backend")
				}
				l.logger.Warn("Live query failed", "user_id", ownerID, "error", err)
				if s.fail() {
					fn(nil, err)
				}
				return
			}
			if !s.active() {
				return
			}
			fn(txs, nil)
		}
	}()

	return Unsubscribe(s.stop)
}
