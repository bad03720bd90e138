// Package adapter is the single chokepoint through which the client core
// talks to the backend service.
//
// Local calls an in-process *backend.Backend; Remote speaks Connect RPC to
// cmd/backend. Both return *apperr.Error values carrying canonical codes.
package adapter

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mmynk/fintrack/internal/feed"
	"github.com/mmynk/fintrack/internal/models"
)

// Unsubscribe cancels an observation. It is idempotent.
type Unsubscribe func()

// Adapter is the client view of the identity provider and document store.
type Adapter interface {
	// ObservePrincipal delivers the current principal (nil when signed out)
	// immediately and again on every change, in order.
	ObservePrincipal(fn func(*models.Principal)) Unsubscribe

	SignInWithPassword(ctx context.Context, email, password string) (*models.Principal, error)

	// RegisterWithPassword creates the principal and its users/{uid}
	// document before returning.
	RegisterWithPassword(ctx context.Context, email, password string) (*models.Principal, error)

	SignOut(ctx context.Context) error

	// ReadUserProfile returns nil and no error when the profile is absent.
	ReadUserProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	WriteUserProfile(ctx context.Context, uid string, profile *models.UserProfile) error

	// ObserveTransactions delivers complete snapshots of the transactions
	// owned by ownerID. A failure is delivered once as fn(nil, err) and ends
	// the observation.
	ObserveTransactions(ownerID string, fn func([]models.Transaction, error)) Unsubscribe

	// AddTransaction stores the draft, stamped with server time, and
	// returns the new id.
	AddTransaction(ctx context.Context, draft models.TransactionDraft) (string, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// principals tracks the signed-in principal and its ID token.
type principals struct {
	mu        sync.Mutex
	principal *models.Principal
	token     string
	feed      feed.Feed[*models.Principal]
}

func (p *principals) observe(fn func(*models.Principal)) Unsubscribe {
	return Unsubscribe(p.feed.Subscribe(fn))
}

func (p *principals) current() (*models.Principal, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.principal, p.token
}

func (p *principals) currentToken() string {
	_, token := p.current()
	return token
}

func (p *principals) set(principal *models.Principal, token string) {
	p.mu.Lock()
	changed := !samePrincipal(p.principal, principal)
	p.principal, p.token = principal, token
	if changed {
		p.feed.Stage(clonePrincipal(principal))
	}
	p.mu.Unlock()
	p.feed.Flush()
}

func (p *principals) clear() {
	p.set(nil, "")
}

// expire clears the principal if token is still the current one.
func (p *principals) expire(token string) {
	p.mu.Lock()
	if token == "" || p.token != token {
		p.mu.Unlock()
		return
	}
	p.principal, p.token = nil, ""
	p.feed.Stage(nil)
	p.mu.Unlock()
	p.feed.Flush()
}

func samePrincipal(a, b *models.Principal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func clonePrincipal(p *models.Principal) *models.Principal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// stream guards a live query so that a failure is delivered at most once and
// nothing is delivered once Unsubscribe has returned to an idle stream.
// Receivers must still tolerate a delivery racing with Unsubscribe.
type stream struct {
	stopped atomic.Bool
	cancel  context.CancelFunc
}

func (s *stream) stop() {
	s.stopped.Store(true)
	s.cancel()
}

func (s *stream) active() bool {
	return !s.stopped.Load()
}

// fail reports whether the caller should deliver a terminal error; it
// returns true at most once and only if the stream was not stopped.
func (s *stream) fail() bool {
	return s.stopped.CompareAndSwap(false, true)
}
