package view

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/fintrack/internal/adapter"
	"github.com/mmynk/fintrack/internal/calculator"
	"github.com/mmynk/fintrack/internal/feed"
	"github.com/mmynk/fintrack/internal/ledger"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/session"
)

var ErrUnknownNav = errors.New("unknown navigation entry")

// Controller follows the session and the signed-in principal's store and
// re-renders the current page on every change.
type Controller struct {
	session *session.Controller
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	nav        Nav
	filter     Filter
	snap       session.Snapshot
	store      *ledger.Store
	list       []models.Transaction
	agg        calculator.Aggregates
	unsubList  adapter.Unsubscribe
	unsubState adapter.Unsubscribe
	closed     bool
	views      feed.Feed[View]
}

// New creates a controller on the dashboard page. Call Start to follow the
// session.
func New(s *session.Controller, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		session: s,
		logger:  logger,
		now:     time.Now,
		nav:     NavDashboard,
	}
}

// Start observes the session. It renders immediately.
func (c *Controller) Start() {
	unsub := c.session.Observe(c.onSession)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		unsub()
		return
	}
	c.unsubState = unsub
	c.mu.Unlock()
}

// Close stops following the session and drops every observer.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubs := []adapter.Unsubscribe{c.unsubState, c.unsubList}
	c.unsubState, c.unsubList, c.store = nil, nil, nil
	c.mu.Unlock()

	for _, u := range unsubs {
		if u != nil {
			u()
		}
	}
	c.views.Close()
}

// Current renders the current page.
func (c *Controller) Current() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Render(c.nav, c.stateLocked())
}

// Observe delivers the current view and then every re-render.
func (c *Controller) Observe(fn func(View)) adapter.Unsubscribe {
	return adapter.Unsubscribe(c.views.Subscribe(fn))
}

// Navigate switches pages. NavSignOut signs the session out, which routes
// the shell back to sign-in. Leaving the transactions page clears its filter.
func (c *Controller) Navigate(ctx context.Context, nav Nav) error {
	if _, ok := renderers[nav]; !ok && nav != NavSignOut {
		return ErrUnknownNav
	}
	if nav == NavSignOut {
		return c.session.SignOut(ctx)
	}

	c.mu.Lock()
	if c.nav != nav {
		c.filter = Filter{}
	}
	c.nav = nav
	c.mu.Unlock()
	c.refresh()
	return nil
}

// SetFilter replaces the transactions page filter.
func (c *Controller) SetFilter(f Filter) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	c.refresh()
}

// Transactions returns the store backing the current view.
func (c *Controller) Transactions() (*ledger.Store, bool) {
	return c.session.Transactions()
}

func (c *Controller) onSession(s session.Snapshot) {
	var store *ledger.Store
	if s.SignedIn() {
		store, _ = c.session.Transactions()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.snap = s
	var stale adapter.Unsubscribe
	attach := store != nil && store != c.store
	if store != c.store {
		stale = c.unsubList
		c.unsubList = nil
		c.store = store
		c.list, c.agg = nil, calculator.Aggregates{}
	}
	if !s.SignedIn() {
		c.nav, c.filter = NavDashboard, Filter{}
	}
	c.mu.Unlock()

	if stale != nil {
		stale()
	}
	if attach {
		unsub := store.ObserveList(func(txs []models.Transaction) { c.onList(store, txs) })
		c.mu.Lock()
		if c.closed || c.store != store {
			c.mu.Unlock()
			unsub()
			return
		}
		c.unsubList = unsub
		c.mu.Unlock()
	}
	c.refresh()
}

func (c *Controller) onList(store *ledger.Store, txs []models.Transaction) {
	agg := calculator.Summarize(txs)

	c.mu.Lock()
	if c.closed || c.store != store {
		c.mu.Unlock()
		return
	}
	c.list, c.agg = txs, agg
	c.mu.Unlock()
	c.refresh()
}

func (c *Controller) refresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.views.Stage(Render(c.nav, c.stateLocked()))
	c.mu.Unlock()
	c.views.Flush()
}

func (c *Controller) stateLocked() State {
	return State{
		Session:    c.snap,
		List:       c.list,
		Aggregates: c.agg,
		Filter:     c.filter,
		Today:      c.now().Format(models.DateLayout),
	}
}
