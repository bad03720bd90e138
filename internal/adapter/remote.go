package adapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/fintrack/internal/apperr"
	"github.com/mmynk/fintrack/internal/config"
	"github.com/mmynk/fintrack/internal/middleware"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/pkg/api"
)

// Ensure Remote implements Adapter
var _ Adapter = (*Remote)(nil)

// Remote talks to cmd/backend over Connect RPC.
type Remote struct {
	client *api.BackendServiceClient
	logger *slog.Logger
	principals
}

// NewRemote creates an adapter for the backend described by cfg.
// A nil httpClient uses http.DefaultClient.
func NewRemote(httpClient connect.HTTPClient, cfg config.Backend, logger *slog.Logger) *Remote {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Remote{logger: logger}
	r.client = api.NewBackendServiceClient(httpClient, cfg.URL,
		connect.WithInterceptors(middleware.BearerToken(cfg.APIKey, r.currentToken)),
	)
	return r
}

func (r *Remote) ObservePrincipal(fn func(*models.Principal)) Unsubscribe {
	return r.observe(fn)
}

func (r *Remote) SignInWithPassword(ctx context.Context, email, password string) (*models.Principal, error) {
	resp, err := r.client.SignIn(ctx, connect.NewRequest(&api.SignInRequest{Email: email, Password: password}))
	if err != nil {
		return nil, api.FromError(err)
	}
	r.set(resp.Msg.Principal, resp.Msg.Token)
	return clonePrincipal(resp.Msg.Principal), nil
}

func (r *Remote) RegisterWithPassword(ctx context.Context, email, password string) (*models.Principal, error) {
	resp, err := r.client.Register(ctx, connect.NewRequest(&api.RegisterRequest{Email: email, Password: password}))
	if err != nil {
		return nil, api.FromError(err)
	}
	r.set(resp.Msg.Principal, resp.Msg.Token)
	return clonePrincipal(resp.Msg.Principal), nil
}

// SignOut discards the ID token. Tokens are stateless; nothing is sent.
func (r *Remote) SignOut(ctx context.Context) error {
	r.clear()
	return nil
}

// fail converts a client error and signs out on an expired token.
func (r *Remote) fail(token string, err error) error {
	err = api.FromError(err)
	if apperr.CodeOf(err) == apperr.CodeTokenExpired {
		r.logger.Info("ID token rejected", "error", err)
		r.expire(token)
	}
	return err
}

func (r *Remote) ReadUserProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	token := r.currentToken()
	resp, err := r.client.ReadProfile(ctx, connect.NewRequest(&api.ReadProfileRequest{UserID: uid}))
	if err != nil {
		return nil, r.fail(token, err)
	}
	return resp.Msg.Profile, nil
}

func (r *Remote) WriteUserProfile(ctx context.Context, uid string, profile *models.UserProfile) error {
	token := r.currentToken()
	_, err := r.client.WriteProfile(ctx, connect.NewRequest(&api.WriteProfileRequest{UserID: uid, Profile: profile}))
	if err != nil {
		return r.fail(token, err)
	}
	return nil
}

func (r *Remote) AddTransaction(ctx context.Context, draft models.TransactionDraft) (string, error) {
	token := r.currentToken()
	resp, err := r.client.AddTransaction(ctx, connect.NewRequest(&api.AddTransactionRequest{Draft: draft}))
	if err != nil {
		return "", r.fail(token, err)
	}
	return resp.Msg.ID, nil
}

func (r *Remote) DeleteTransaction(ctx context.Context, id string) error {
	token := r.currentToken()
	_, err := r.client.DeleteTransaction(ctx, connect.NewRequest(&api.DeleteTransactionRequest{ID: id}))
	if err != nil {
		return r.fail(token, err)
	}
	return nil
}

// ObserveTransactions holds a server stream open on its own goroutine; fn is
// never called concurrently with itself.
func (r *Remote) ObserveTransactions(ownerID string, fn func([]models.Transaction, error)) Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())
	s := &stream{cancel: cancel}
	token := r.currentToken()

	go func() {
		defer cancel()

		st, err := r.client.WatchTransactions(ctx, connect.NewRequest(&api.WatchTransactionsRequest{OwnerID: ownerID}))
		if err != nil {
			if ctx.Err() == nil && s.fail() {
				fn(nil, r.fail(token, err))
			}
			return
		}
		defer st.Close()

		for st.Receive() {
			if !s.active() {
				return
			}
			fn(st.Msg().Transactions, nil)
		}

		if ctx.Err() != nil {
			return
		}
		err = st.Err()
		if err == nil {
			err = errors.New("live query stream ended")
		}
		err = r.fail(token, err)
		r.logger.Warn("Live query failed", "user_id", ownerID, "error", err)
		if s.fail() {
			fn(nil, err)
		}
	}()

	return Unsubscribe(s.stop)
}
