// Package service exposes the backend over Connect RPC.
package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/fintrack/internal/backend"
	"github.com/mmynk/fintrack/internal/middleware"
	"github.com/mmynk/fintrack/pkg/api"
)

// Ensure BackendService implements api.BackendServiceHandler
var _ api.BackendServiceHandler = (*BackendService)(nil)

// BackendService implements the fintrack.v1.BackendService RPC interface.
type BackendService struct {
	backend *backend.Backend
	logger  *slog.Logger
}

// NewBackendService creates a new backend service.
func NewBackendService(b *backend.Backend, logger *slog.Logger) *BackendService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackendService{backend: b, logger: logger}
}

// SignIn authenticates with email and password and returns an ID token.
func (s *BackendService) SignIn(ctx context.Context, req *connect.Request[api.SignInRequest]) (*connect.Response[api.SignInResponse], error) {
	s.logger.Info("SignIn request", "email", req.Msg.Email)

	session, err := s.backend.SignIn(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		return nil, api.NewError(err)
	}

	s.logger.Info("User signed in", "user_id", session.Principal.ID)
	return connect.NewResponse(&api.SignInResponse{
		Principal: session.Principal,
		Token:     session.Token,
	}), nil
}

// Register creates a new principal and its profile document.
func (s *BackendService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	session, err := s.backend.Register(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		return nil, api.NewError(err)
	}

	return connect.NewResponse(&api.RegisterResponse{
		Principal: session.Principal,
		Token:     session.Token,
	}), nil
}

// ReadProfile returns users/{uid}; the profile is omitted when absent.
func (s *BackendService) ReadProfile(ctx context.Context, req *connect.Request[api.ReadProfileRequest]) (*connect.Response[api.ReadProfileResponse], error) {
	profile, err := s.backend.ReadProfile(ctx, middleware.GetPrincipal(ctx), req.Msg.UserID)
	if err != nil {
		return nil, api.NewError(err)
	}
	return connect.NewResponse(&api.ReadProfileResponse{Profile: profile}), nil
}

// WriteProfile creates or replaces users/{uid}.
func (s *BackendService) WriteProfile(ctx context.Context, req *connect.Request[api.WriteProfileRequest]) (*connect.Response[api.WriteProfileResponse], error) {
	if err := s.backend.WriteProfile(ctx, middleware.GetPrincipal(ctx), req.Msg.UserID, req.Msg.Profile); err != nil {
		return nil, api.NewError(err)
	}
	return connect.NewResponse(&api.WriteProfileResponse{}), nil
}

// AddTransaction stores a new transaction document.
func (s *BackendService) AddTransaction(ctx context.Context, req *connect.Request[api.AddTransactionRequest]) (*connect.Response[api.AddTransactionResponse], error) {
	id, err := s.backend.AddTransaction(ctx, middleware.GetPrincipal(ctx), req.Msg.Draft)
	if err != nil {
		return nil, api.NewError(err)
	}
	return connect.NewResponse(&api.AddTransactionResponse{ID: id}), nil
}

// DeleteTransaction removes a transaction document.
func (s *BackendService) DeleteTransaction(ctx context.Context, req *connect.Request[api.DeleteTransactionRequest]) (*connect.Response[api.DeleteTransactionResponse], error) {
	if err := s.backend.DeleteTransaction(ctx, middleware.GetPrincipal(ctx), req.Msg.ID); err != nil {
		return nil, api.NewError(err)
	}
	return connect.NewResponse(&api.DeleteTransactionResponse{}), nil
}

// WatchTransactions streams complete snapshots of the owner's transactions
// until the client goes away or the live query fails.
func (s *BackendService) WatchTransactions(ctx context.Context, req *connect.Request[api.WatchTransactionsRequest], stream *connect.ServerStream[api.TransactionSnapshot]) error {
	watch, err := s.backend.Watch(ctx, middleware.GetPrincipal(ctx), req.Msg.OwnerID)
	if err != nil {
		return api.NewError(err)
	}
	defer watch.Close()

	for {
		txs, err := watch.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, backend.ErrWatchClosed) {
				return nil
			}
			s.logger.Warn("Live query ended", "user_id", req.Msg.OwnerID, "error", err)
			return api.NewError(err)
		}
		if err := stream.Send(&api.TransactionSnapshot{Transactions: txs}); err != nil {
			return err
		}
	}
}
