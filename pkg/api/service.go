package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// BackendServiceName is the fully-qualified name of the service.
const BackendServiceName = "fintrack.v1.BackendService"

// Procedure paths of BackendService.
const (
	BackendServiceSignInProcedure            = "/fintrack.v1.BackendService/SignIn"
	BackendServiceRegisterProcedure          = "/fintrack.v1.BackendService/Register"
	BackendServiceReadProfileProcedure       = "/fintrack.v1.BackendService/ReadProfile"
	BackendServiceWriteProfileProcedure      = "/fintrack.v1.BackendService/WriteProfile"
	BackendServiceAddTransactionProcedure    = "/fintrack.v1.BackendService/AddTransaction"
	BackendServiceDeleteTransactionProcedure = "/fintrack.v1.BackendService/DeleteTransaction"
	BackendServiceWatchTransactionsProcedure = "/fintrack.v1.BackendService/WatchTransactions"
)

// PublicProcedures may be called without an ID token.
var PublicProcedures = map[string]bool{
	BackendServiceSignInProcedure:   true,
	BackendServiceRegisterProcedure: true,
}

// BackendServiceHandler is implemented by the server.
type BackendServiceHandler interface {
	SignIn(context.Context, *connect.Request[SignInRequest]) (*connect.Response[SignInResponse], error)
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error)
	ReadProfile(context.Context, *connect.Request[ReadProfileRequest]) (*connect.Response[ReadProfileResponse], error)
	WriteProfile(context.Context, *connect.Request[WriteProfileRequest]) (*connect.Response[WriteProfileResponse], error)
	AddTransaction(context.Context, *connect.Request[AddTransactionRequest]) (*connect.Response[AddTransactionResponse], error)
	DeleteTransaction(context.Context, *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error)
	WatchTransactions(context.Context, *connect.Request[WatchTransactionsRequest], *connect.ServerStream[TransactionSnapshot]) error
}

// NewBackendServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewBackendServiceHandler(svc BackendServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, connect.WithCodec(Codec{}))

	handlers := map[string]http.Handler{
		BackendServiceSignInProcedure:            connect.NewUnaryHandler(BackendServiceSignInProcedure, svc.SignIn, opts...),
		BackendServiceRegisterProcedure:          connect.NewUnaryHandler(BackendServiceRegisterProcedure, svc.Register, opts...),
		BackendServiceReadProfileProcedure:       connect.NewUnaryHandler(BackendServiceReadProfileProcedure, svc.ReadProfile, opts...),
		BackendServiceWriteProfileProcedure:      connect.NewUnaryHandler(BackendServiceWriteProfileProcedure, svc.WriteProfile, opts...),
		BackendServiceAddTransactionProcedure:    connect.NewUnaryHandler(BackendServiceAddTransactionProcedure, svc.AddTransaction, opts...),
		BackendServiceDeleteTransactionProcedure: connect.NewUnaryHandler(BackendServiceDeleteTransactionProcedure, svc.DeleteTransaction, opts...),
		BackendServiceWatchTransactionsProcedure: connect.NewServerStreamHandler(BackendServiceWatchTransactionsProcedure, svc.WatchTransactions, opts...),
	}

	return "/" + BackendServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// BackendServiceClient is a client for fintrack.v1.BackendService.
type BackendServiceClient struct {
	signIn            *connect.Client[SignInRequest, SignInResponse]
	register          *connect.Client[RegisterRequest, RegisterResponse]
	readProfile       *connect.Client[ReadProfileRequest, ReadProfileResponse]
	writeProfile      *connect.Client[WriteProfileRequest, WriteProfileResponse]
	addTransaction    *connect.Client[AddTransactionRequest, AddTransactionResponse]
	deleteTransaction *connect.Client[DeleteTransactionRequest, DeleteTransactionResponse]
	watchTransactions *connect.Client[WatchTransactionsRequest, TransactionSnapshot]
}

// NewBackendServiceClient constructs a client for the service at baseURL
// (for example, http://localhost:8081).
func NewBackendServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *BackendServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append(opts, connect.WithCodec(Codec{}))
	return &BackendServiceClient{
		signIn:            connect.NewClient[SignInRequest, SignInResponse](httpClient, baseURL+BackendServiceSignInProcedure, opts...),
		register:          connect.NewClient[RegisterRequest, RegisterResponse](httpClient, baseURL+BackendServiceRegisterProcedure, opts...),
		readProfile:       connect.NewClient[ReadProfileRequest, ReadProfileResponse](httpClient, baseURL+BackendServiceReadProfileProcedure, opts...),
		writeProfile:      connect.NewClient[WriteProfileRequest, WriteProfileResponse](httpClient, baseURL+BackendServiceWriteProfileProcedure, opts...),
		addTransaction:    connect.NewClient[AddTransactionRequest, AddTransactionResponse](httpClient, baseURL+BackendServiceAddTransactionProcedure, opts...),
		deleteTransaction: connect.NewClient[DeleteTransactionRequest, DeleteTransactionResponse](httpClient, baseURL+BackendServiceDeleteTransactionProcedure, opts...),
		watchTransactions: connect.NewClient[WatchTransactionsRequest, TransactionSnapshot](httpClient, baseURL+BackendServiceWatchTransactionsProcedure, opts...),
	}
}

func (c *BackendServiceClient) SignIn(ctx context.Context, req *connect.Request[SignInRequest]) (*connect.Response[SignInResponse], error) {
	return c.signIn.CallUnary(ctx, req)
}

func (c *BackendServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *BackendServiceClient) ReadProfile(ctx context.Context, req *connect.Request[ReadProfileRequest]) (*connect.Response[ReadProfileResponse], error) {
	return c.readProfile.CallUnary(ctx, req)
}

func (c *BackendServiceClient) WriteProfile(ctx context.Context, req *connect.Request[WriteProfileRequest]) (*connect.Response[WriteProfileResponse], error) {
	return c.writeProfile.CallUnary(ctx, req)
}

func (c *BackendServiceClient) AddTransaction(ctx context.Context, req *connect.Request[AddTransactionRequest]) (*connect.Response[AddTransactionResponse], error) {
	return c.addTransaction.CallUnary(ctx, req)
}

func (c *BackendServiceClient) DeleteTransaction(ctx context.Context, req *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error) {
	return c.deleteTransaction.CallUnary(ctx, req)
}

func (c *BackendServiceClient) WatchTransactions(ctx context.Context, req *connect.Request[WatchTransactionsRequest]) (*connect.ServerStreamForClient[TransactionSnapshot], error) {
	return c.watchTransactions.CallServerStream(ctx, req)
}
