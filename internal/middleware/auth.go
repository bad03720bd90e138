package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/fintrack/internal/auth"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/pkg/api"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// PrincipalKey is the context key for storing the authenticated principal.
const PrincipalKey contextKey = "principal"

var ErrInvalidAPIKey = errors.New("invalid API key")

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if not found.
func GetPrincipal(ctx context.Context) *models.Principal {
	p, _ := ctx.Value(PrincipalKey).(*models.Principal)
	return p
}

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.ID
	}
	return ""
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// TokenVerifier resolves an ID token to its principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Principal, error)
}

// authInterceptor validates ID tokens on every procedure except the public ones.
type authInterceptor struct {
	verifier TokenVerifier
	apiKey   string
}

// RequireAuth returns an interceptor that checks the project API key and, for
// non-public procedures, validates the bearer ID token and adds the principal
// to the request context. An empty apiKey disables the key check.
func RequireAuth(verifier TokenVerifier, apiKey string) connect.Interceptor {
	return &authInterceptor{verifier: verifier, apiKey: apiKey}
}

func (i *authInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		ctx, err := i.authenticate(ctx, req.Spec().Procedure, req.Header())
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (i *authInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *authInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, err := i.authenticate(ctx, conn.Spec().Procedure, conn.RequestHeader())
		if err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

func (i *authInterceptor) authenticate(ctx context.Context, procedure string, header http.Header) (context.Context, error) {
	if i.apiKey != "" {
		key := header.Get(api.APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(i.apiKey)) != 1 {
			return ctx, connect.NewError(connect.CodePermissionDenied, ErrInvalidAPIKey)
		}
	}

	if api.PublicProcedures[procedure] {
		return ctx, nil
	}

	// Extract Authorization header
	authHeader := header.Get("Authorization")
	if authHeader == "" {
		return ctx, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	// Parse Bearer token
	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || tokenString == "" {
		return ctx, api.NewError(auth.ErrInvalidToken)
	}

	principal, err := i.verifier.Verify(ctx, tokenString)
	if err != nil {
		return ctx, api.NewError(err)
	}

	return WithPrincipal(ctx, principal), nil
}

// BearerToken returns a client interceptor that attaches the project API key
// and, when token returns a non-empty string, the ID token to every call.
func BearerToken(apiKey string, token func() string) connect.Interceptor {
	return &clientAuthInterceptor{apiKey: apiKey, token: token}
}

type clientAuthInterceptor struct {
	apiKey string
	token  func() string
}

func (c *clientAuthInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			c.decorate(req.Header())
		}
		return next(ctx, req)
	}
}

func (c *clientAuthInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		c.decorate(conn.RequestHeader())
		return conn
	}
}

func (c *clientAuthInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

func (c *clientAuthInterceptor) decorate(h http.Header) {
	if c.apiKey != "" {
		h.Set(api.APIKeyHeader, c.apiKey)
	}
	if tok := c.token(); tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
}
