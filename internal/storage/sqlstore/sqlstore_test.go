package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAccounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	account := &models.Account{ID: "u1", Email: "ada@x.io", PasswordHash: "hash", CreatedAt: 1717200000}
	profile := &models.UserProfile{Email: "ada@x.io", CreatedAt: "2024-06-01T00:00:00Z"}

	t.Run("CreateAccount writes account and profile", func(t *testing.T) {
		if err := store.CreateAccount(ctx, account, profile); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}

		got, err := store.GetAccountByEmail(ctx, "ada@x.io")
		if err != nil {
			t.Fatalf("GetAccountByEmail failed: %v", err)
		}
		if got == nil || got.ID != "u1" || got.PasswordHash != "hash" {
			t.Errorf("unexpected account: %+v", got)
		}

		p, err := store.GetProfile(ctx, "u1")
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if p == nil || p.Email != "ada@x.io" || p.CreatedAt != profile.CreatedAt {
			t.Errorf("unexpected profile: %+v", p)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := &models.Account{ID: "u2", Email: "ada@x.io", PasswordHash: "x", CreatedAt: 1}
		err := store.CreateAccount(ctx, dup, &models.UserProfile{Email: "ada@x.io"})
		if !errors.Is(err, storage.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		if p, _ := store.GetProfile(ctx, "u2"); p != nil {
			t.Error("profile must not be written when the account insert fails")
		}
	})

	t.Run("absent lookups return nil", func(t *testing.T) {
		a, err := store.GetAccountByID(ctx, "nope")
		if err != nil || a != nil {
			t.Errorf("GetAccountByID = %+v, %v", a, err)
		}
		p, err := store.GetProfile(ctx, "nope")
		if err != nil || p != nil {
			t.Errorf("GetProfile = %+v, %v", p, err)
		}
	})

	t.Run("PutProfile replaces", func(t *testing.T) {
		err := store.PutProfile(ctx, "u1", &models.UserProfile{Email: "ada@x.io", FullName: "Ada", CreatedAt: profile.CreatedAt})
		if err != nil {
			t.Fatalf("PutProfile failed: %v", err)
		}
		p, _ := store.GetProfile(ctx, "u1")
		if p == nil || p.FullName != "Ada" {
			t.Errorf("expected updated profile, got %+v", p)
		}
	})
}

func TestTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	txs := []*models.Transaction{
		{UserID: "u1", Amount: 20, Category: "Food", Date: "2024-06-01", Type: models.KindExpense, CreatedAt: base},
		{UserID: "u1", Amount: 100, Category: "Salary", Date: "2024-06-02", Type: models.KindIncome, CreatedAt: base},
		{UserID: "u2", Amount: 5, Category: "Other", Date: "2024-06-03", Type: models.KindExpense},
	}
	for _, tx := range txs {
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
		if tx.ID == "" {
			t.Error("Expected transaction ID to be generated")
		}
	}
	if txs[2].CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}

	t.Run("list filters by owner", func(t *testing.T) {
		got, err := store.ListTransactionsByOwner(ctx, "u1")
		if err != nil {
			t.Fatalf("ListTransactionsByOwner failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 transactions, got %d", len(got))
		}
		if got[0].Date != "2024-06-02" || got[1].Date != "2024-06-01" {
			t.Errorf("unexpected order: %s, %s", got[0].Date, got[1].Date)
		}
		if got[1].Amount != 20 || got[1].Type != models.KindExpense || !got[1].CreatedAt.Equal(base) {
			t.Errorf("fields did not round trip: %+v", got[1])
		}
	})

	t.Run("empty owner lists nothing", func(t *testing.T) {
		got, err := store.ListTransactionsByOwner(ctx, "nobody")
		if err != nil || len(got) != 0 {
			t.Errorf("got %v, %v", got, err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.DeleteTransaction(ctx, txs[0].ID); err != nil {
			t.Fatalf("DeleteTransaction failed: %v", err)
		}
		if got, _ := store.GetTransaction(ctx, txs[0].ID); got != nil {
			t.Error("expected transaction to be gone")
		}
		if err := store.DeleteTransaction(ctx, txs[0].ID); err != nil {
			t.Errorf("deleting an absent id should succeed, got %v", err)
		}
	})
}

func TestRebind(t *testing.T) {
	s := &Store{driver: DriverPostgres}
	got := s.rebind("SELECT a FROM t WHERE x = ? AND y = ?")
	if got != "SELECT a FROM t WHERE x = $1 AND y = $2" {
		t.Errorf("rebind = %q", got)
	}

	s.driver = DriverSQLite
	if got := s.rebind("x = ?"); got != "x = ?" {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestNewUnknownDriver(t *testing.T) {
	if _, err := New("mysql", "x"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
