package backend

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/mmynk/fintrack/internal/apperr"
	"github.com/mmynk/fintrack/internal/metrics"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/storage"
)

// ErrWatchClosed is returned by Watch.Next once the watch has ended.
var ErrWatchClosed = errors.New("watch closed")

// hub re-runs an owner's live query after every write and offers the
// resulting snapshot to each open watch of that owner.
type hub struct {
	store   storage.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	// query orders snapshot production for one owner.
	query   sync.Mutex
	watches map[*Watch]struct{} // guarded by hub.mu
}

func newHub(store storage.Store, m *metrics.Metrics, logger *slog.Logger) *hub {
	return &hub{
		store:   store,
		metrics: m,
		logger:  logger,
		topics:  make(map[string]*topic),
	}
}

func (h *hub) open(ctx context.Context, owner string) (*Watch, error) {
	w := &Watch{owner: owner, signal: make(chan struct{}, 1)}
	w.release = func() { h.remove(owner, w) }

	h.mu.Lock()
	t, ok := h.topics[owner]
	if !ok {
		t = &topic{watches: make(map[*Watch]struct{})}
		h.topics[owner] = t
	}
	t.watches[w] = struct{}{}
	h.mu.Unlock()
	h.metrics.LiveQueryOpened()

	t.query.Lock()
	defer t.query.Unlock()

	txs, err := h.store.ListTransactionsByOwner(ctx, owner)
	if err != nil {
		w.Close()
		return nil, apperr.Wrap(apperr.CodeInternal, err)
	}

	w.offer(txs, nil)
	return w, nil
}

// refresh re-queries owner and offers the snapshot to its watches. A failed
// query ends every watch of the owner after delivering the error once.
func (h *hub) refresh(ctx context.Context, owner string) {
	h.mu.Lock()
	t, ok := h.topics[owner]
	h.mu.Unlock()
	if !ok {
		return
	}

	t.query.Lock()
	defer t.query.Unlock()

	// The write has already committed; finish the query even if the caller goes away.
	txs, err := h.store.ListTransactionsByOwner(context.WithoutCancel(ctx), owner)
	if err != nil {
		h.logger.Error("Live query failed", "user_id", owner, "error", err)
		err = apperr.Wrap(apperr.CodeInternal, err)
	}

	h.mu.Lock()
	watches := make([]*Watch, 0, len(t.watches))
	for w := range t.watches {
		watches = append(watches, w)
	}
	h.mu.Unlock()

	for _, w := range watches {
		w.offer(txs, err)
	}
}

func (h *hub) remove(owner string, w *Watch) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[owner]
	if !ok {
		return
	}
	if _, ok := t.watches[w]; !ok {
		return
	}
	delete(t.watches, w)
	h.metrics.LiveQueryClosed()
	if len(t.watches) == 0 {
		delete(h.topics, owner)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	var all []*Watch
	for _, t := range h.topics {
		for w := range t.watches {
			all = append(all, w)
		}
	}
	h.mu.Unlock()

	for _, w := range all {
		w.Close()
	}
}

// Watch is an open live query. Snapshots are complete result sets; a reader
// that falls behind sees only the latest one.
type Watch struct {
	owner   string
	release func()
	signal  chan struct{}

	mu     sync.Mutex
	seq    uint64
	seen   uint64
	txs    []models.Transaction
	err    error
	closed bool
}

// Owner returns the principal whose transactions are watched.
func (w *Watch) Owner() string {
	return w.owner
}

func (w *Watch) offer(txs []models.Transaction, err error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.txs = slices.Clone(txs)
	w.err = err
	w.seq++
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Next blocks until a snapshot newer than the last one returned is available.
// A query error is returned once and ends the watch; afterwards Next returns
// ErrWatchClosed.
func (w *Watch) Next(ctx context.Context) ([]models.Transaction, error) {
	for {
		w.mu.Lock()
		if w.seq > w.seen {
			w.seen = w.seq
			txs, err := w.txs, w.err
			w.mu.Unlock()
			if err != nil {
				w.Close()
				return nil, err
			}
			return txs, nil
		}
		if w.closed {
			w.mu.Unlock()
			return nil, ErrWatchClosed
		}
		w.mu.Unlock()

		select {
		case <-w.signal:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close ends the watch. It is idempotent.
func (w *Watch) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.release()
	select {
	case w.signal <- struct{}{}:
	default:
	}
}
