package backend

import (
	"context"
	"fmt"

	"github.com/mmynk/fintrack/internal/auth"
	"github.com/mmynk/fintrack/internal/config"
	"github.com/mmynk/fintrack/internal/storage/sqlstore"
)

// Open builds a backend from process configuration: the SQL document store
// named by DBDriver and DBDSN, password authentication and ID tokens scoped
// to the configured project.
func Open(cfg *config.Config, opts ...Option) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := sqlstore.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	authn := auth.NewPasswordAuthenticator(store)
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL, cfg.Backend.ProjectID)
	return New(store, authn, tokens, opts...), nil
}

// Ping checks that the document store is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if p, ok := b.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// CloseWatches ends every live query, leaving the store open. Servers call
// it before draining connections so streaming handlers return.
func (b *Backend) CloseWatches() {
	b.hub.closeAll()
}
