// Package ledger keeps the signed-in principal's live, ordered list of
// transactions and accepts writes against it.
//
// The list is replaced wholesale by every snapshot from the backend; writes
// are never applied locally and become visible only through the live query.
package ledger

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mmynk/fintrack/internal/adapter"
	"github.com/mmynk/fintrack/internal/apperr"
	"github.com/mmynk/fintrack/internal/calculator"
	"github.com/mmynk/fintrack/internal/feed"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/notify"
)

// User-facing messages.
const (
	MsgRequiredFields  = "Please fill in all required fields"
	MsgInvalidAmount   = "Amount must be a positive number"
	MsgInvalidDate     = "Date must be a valid date (YYYY-MM-DD)"
	MsgInvalidKind     = "Type must be income or expense"
	MsgAdded           = "Transaction added successfully!"
	MsgDeleted         = "Transaction deleted"
	addFailedPrefix    = "Failed to add transaction: "
	deleteFailedPrefix = "Failed to delete transaction: "
)

// Input is the add-transaction form as submitted.
type Input struct {
	Amount      string
	Kind        models.Kind
	Category    string
	Date        string
	Description string
}

// Store is the transaction list of one principal. It is created when the
// session signs in and disposed when it leaves the signed-in state.
type Store struct {
	adapter  adapter.Adapter
	ownerID  string
	notifier notify.Sink
	logger   *slog.Logger

	mu       sync.Mutex
	items    []models.Transaction
	started  bool
	disposed bool
	unsub    adapter.Unsubscribe
	lists    feed.Feed[[]models.Transaction]
}

// New creates a store for ownerID. It does nothing until Start.
func New(a adapter.Adapter, ownerID string, notifier notify.Sink, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		adapter:  a,
		ownerID:  ownerID,
		notifier: notifier,
		logger:   logger.With("user_id", ownerID),
	}
}

// OwnerID returns the principal whose transactions the store holds.
func (s *Store) OwnerID() string {
	return s.ownerID
}

// Start opens the live query. Calling it again, or after Dispose, does nothing.
func (s *Store) Start() {
	s.mu.Lock()
	if s.started || s.disposed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	unsub := s.adapter.ObserveTransactions(s.ownerID, s.apply)

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		unsub()
		return
	}
	s.unsub = unsub
	s.mu.Unlock()
}

// Dispose cancels the live query, clears the list and drops every list
// observer without notifying it. Later snapshots are ignored.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.items = nil
	// Late observers see an empty list; Close drops the queued delivery.
	s.lists.Stage(nil)
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.lists.Close()
}

// Disposed reports whether Dispose has been called.
func (s *Store) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// ObserveList delivers the current list immediately and then every
// subsequent snapshot. Listeners must not modify the slice.
func (s *Store) ObserveList(fn func([]models.Transaction)) adapter.Unsubscribe {
	return adapter.Unsubscribe(s.lists.Subscribe(fn))
}

// List returns a copy of the current list.
func (s *Store) List() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Aggregates computes totals and chart series from the current list.
func (s *Store) Aggregates() calculator.Aggregates {
	return calculator.Summarize(s.List())
}

// Add validates in and asks the backend to store it. The new entry appears
// with the next snapshot. Every failure is reported to the notifier once.
func (s *Store) Add(ctx context.Context, in Input) (string, error) {
	draft, err := s.draft(in)
	if err != nil {
		s.notifier.Error(apperr.Normalize(err))
		return "", err
	}

	id, err := s.adapter.AddTransaction(ctx, draft)
	if err != nil {
		s.logger.Warn("Add transaction failed", "error", err)
		s.report(addFailedPrefix, err)
		return "", err
	}

	s.logger.Debug("Transaction added", "id", id)
	s.notifier.Success(MsgAdded)
	return id, nil
}

// Remove asks the backend to delete id. Removing an absent id succeeds.
// Confirmation is the caller's concern.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.adapter.DeleteTransaction(ctx, id); err != nil {
		s.logger.Warn("Delete transaction failed", "id", id, "error", err)
		s.report(deleteFailedPrefix, err)
		return err
	}
	s.notifier.Success(MsgDeleted)
	return nil
}

func (s *Store) draft(in Input) (models.TransactionDraft, error) {
	amountText := strings.TrimSpace(in.Amount)
	category := strings.TrimSpace(in.Category)
	date := strings.TrimSpace(in.Date)
	if amountText == "" || category == "" || date == "" {
		return models.TransactionDraft{}, apperr.Validation(MsgRequiredFields)
	}

	amount, err := decimal.NewFromString(amountText)
	if err != nil || !amount.IsPositive() {
		return models.TransactionDraft{}, apperr.Validation(MsgInvalidAmount)
	}
	if _, err := models.ParseDate(date); err != nil {
		return models.TransactionDraft{}, apperr.Validation(MsgInvalidDate)
	}
	if !in.Kind.Valid() {
		return models.TransactionDraft{}, apperr.Validation(MsgInvalidKind)
	}

	return models.TransactionDraft{
		UserID:      s.ownerID,
		Amount:      amount.InexactFloat64(),
		Category:    category,
		Date:        date,
		Description: strings.TrimSpace(in.Description),
		Type:        in.Kind,
	}, nil
}

// apply replaces the list with a snapshot, or tears the query down on failure.
func (s *Store) apply(txs []models.Transaction, err error) {
	if err != nil {
		s.fail(err)
		return
	}

	items := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if reason := s.reject(tx); reason != "" {
			s.logger.Warn("Dropping transaction from snapshot", "id", tx.ID, "reason", reason)
			continue
		}
		items = append(items, tx)
	}
	Sort(items)

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.items = items
	s.lists.Stage(slices.Clone(items))
	s.mu.Unlock()
	s.lists.Flush()
}

func (s *Store) reject(tx models.Transaction) string {
	switch {
	case tx.UserID != s.ownerID:
		return "foreign owner"
	case !(tx.Amount > 0):
		return "non-positive amount"
	case !tx.Type.Valid():
		return "unknown type"
	}
	if _, err := models.ParseDate(tx.Date); err != nil {
		return "invalid date"
	}
	return ""
}

// fail reports a stream failure once and ends the subscription. The list
// keeps its last snapshot.
func (s *Store) fail(err error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.logger.Warn("Transaction subscription failed", "error", err)
	s.report("", err)
}

// report shows a backend failure. Fields the backend rejected are shown
// where form validation messages go.
func (s *Store) report(prefix string, err error) {
	msg := prefix + apperr.Normalize(err)
	if apperr.KindOf(err) == apperr.KindValidation {
		s.notifier.Error(msg)
		return
	}
	notify.Failure(s.notifier, msg)
}

// Sort orders transactions by date descending, then creation time
// descending, then id ascending.
func Sort(txs []models.Transaction) {
	slices.SortStableFunc(txs, func(a, b models.Transaction) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
