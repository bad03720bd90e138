package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/fintrack/internal/adapter"
	"github.com/mmynk/fintrack/internal/metrics"
	"github.com/mmynk/fintrack/internal/notify"
	"github.com/mmynk/fintrack/internal/session"
	"github.com/mmynk/fintrack/internal/view"
)

// Client is the client core of one browser: its own adapter, session,
// view controller and notification buffer.
type Client struct {
	ID      string
	Session *session.Controller
	View    *view.Controller
	Notices *notify.Buffer
}

func (c *Client) close() {
	c.View.Close()
	c.Session.Close()
}

type entry struct {
	client   *Client
	lastSeen time.Time
}

// Registry maps browser cookies to clients and evicts idle ones.
type Registry struct {
	newAdapter func() adapter.Adapter
	ttl        time.Duration
	notifyTTL  time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	clients map[string]*entry
	closed  bool
}

// NewRegistry creates a registry. Each new client gets an adapter from
// newAdapter; clients idle for longer than ttl are closed by Sweep.
func NewRegistry(newAdapter func() adapter.Adapter, ttl, notifyTTL time.Duration, m *metrics.Metrics, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		newAdapter: newAdapter,
		ttl:        ttl,
		notifyTTL:  notifyTTL,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
		clients:    make(map[string]*entry),
	}
}

// Lookup returns the client for id and marks it active.
func (r *Registry) Lookup(id string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.clients[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.client, true
}

// Create starts a new client core.
func (r *Registry) Create() *Client {
	id := uuid.NewString()
	logger := r.logger.With("client_id", id)

	notices := notify.NewBuffer(r.notifyTTL)
	sink := notify.Multi{notices, notify.NewLog(logger), meteredSink{r.metrics}}

	sess := session.New(r.newAdapter(), sink, logger)
	views := view.New(sess, logger)
	c := &Client{ID: id, Session: sess, View: views, Notices: notices}
	sess.Start()
	views.Start()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		c.close()
		return c
	}
	r.clients[id] = &entry{client: c, lastSeen: r.now()}
	n := len(r.clients)
	r.mu.Unlock()

	r.metrics.SetWebClients(n)
	logger.Debug("Client created")
	return c
}

// Len returns the number of live clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep closes clients idle for longer than the TTL and returns how many
// were closed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var idle []*Client
	for id, e := range r.clients {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e.client)
			delete(r.clients, id)
		}
	}
	n := len(r.clients)
	r.mu.Unlock()

	for _, c := range idle {
		c.close()
	}
	if len(idle) > 0 {
		r.metrics.SetWebClients(n)
		r.logger.Info("Evicted idle clients", "count", len(idle), "remaining", n)
	}
	return len(idle)
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := max(r.ttl/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close closes every client. Later Creates return closed clients.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	clients := r.clients
	r.clients = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range clients {
		e.client.close()
	}
	r.metrics.SetWebClients(0)
}

// meteredSink counts notifications by level.
type meteredSink struct {
	m *metrics.Metrics
}

func (s meteredSink) Info(msg string)    { s.m.Notification(string(notify.LevelInfo)) }
func (s meteredSink) Success(msg string) { s.m.Notification(string(notify.LevelSuccess)) }
func (s meteredSink) Error(msg string)   { s.m.Notification(string(notify.LevelError)) }

func (s meteredSink) Notify(m notify.Message) {
	s.m.Notification(string(m.Level))
}
