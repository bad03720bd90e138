package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/fintrack/internal/apperr"
	"github.com/mmynk/fintrack/internal/auth"
	"github.com/mmynk/fintrack/internal/backend"
	"github.com/mmynk/fintrack/internal/config"
	"github.com/mmynk/fintrack/internal/middleware"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/service"
	"github.com/mmynk/fintrack/internal/storage/sqlstore"
	"github.com/mmynk/fintrack/pkg/api"
)

const testAPIKey = "test-key"

func newBackend(t *testing.T, tokenTTL time.Duration) *backend.Backend {
	t.Helper()
	store, err := sqlstore.NewSQLite(filepath.Join(t.TempDir(), "adapter.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	b := backend.New(store, auth.NewPasswordAuthenticator(store), auth.NewJWTManager("secret", tokenTTL, "fintrack-test"))
	t.Cleanup(func() { b.Close() })
	return b
}

func newRemote(t *testing.T, b *backend.Backend) *Remote {
	t.Helper()
	path, handler := api.NewBackendServiceHandler(
		service.NewBackendService(b, nil),
		connect.WithInterceptors(middleware.RequireAuth(b, testAPIKey)),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewRemote(server.Client(), config.Backend{URL: server.URL, APIKey: testAPIKey}, nil)
}

// implementations runs a test against both adapters.
func implementations(t *testing.T, tokenTTL time.Duration, test func(t *testing.T, a Adapter)) {
	t.Run("local", func(t *testing.T) {
		test(t, NewLocal(newBackend(t, tokenTTL), nil))
	})
	t.Run("remote", func(t *testing.T) {
		test(t, newRemote(t, newBackend(t, tokenTTL)))
	})
}

type principalLog chan *models.Principal

func watchPrincipal(t *testing.T, a Adapter) principalLog {
	t.Helper()
	ch := make(principalLog, 16)
	unsub := a.ObservePrincipal(func(p *models.Principal) { ch <- p })
	t.Cleanup(func() { unsub() })
	return ch
}

func (ch principalLog) next(t *testing.T) *models.Principal {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for principal delivery")
		return nil
	}
}

type snapshot struct {
	txs []models.Transaction
	err error
}

func watchTransactions(t *testing.T, a Adapter, owner string) (chan snapshot, Unsubscribe) {
	t.Helper()
	ch := make(chan snapshot, 16)
	unsub := a.ObserveTransactions(owner, func(txs []models.Transaction, err error) {
		ch <- snapshot{txs, err}
	})
	t.Cleanup(func() { unsub() })
	return ch, unsub
}

func nextSnapshot(t *testing.T, ch chan snapshot) snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return snapshot{}
	}
}

func TestPrincipalLifecycle(t *testing.T) {
	implementations(t, time.Hour, func(t *testing.T, a Adapter) {
		ctx := context.Background()
		principals := watchPrincipal(t, a)

		if p := principals.next(t); p != nil {
			t.Fatalf("expected absent principal first, got %+v", p)
		}

		registered, err := a.RegisterWithPassword(ctx, "ada@x.io", "longenough")
		if err != nil {
			t.Fatalf("RegisterWithPassword failed: %v", err)
		}
		if p := principals.next(t); p == nil || p.ID != registered.ID {
			t.Fatalf("expected registered principal, got %+v", p)
		}

		profile, err := a.ReadUserProfile(ctx, registered.ID)
		if err != nil {
			t.Fatalf("ReadUserProfile failed: %v", err)
		}
		if profile == nil || profile.Email != "ada@x.io" {
			t.Errorf("expected registration to create the profile, got %+v", profile)
		}

		if err := a.SignOut(ctx); err != nil {
			t.Fatalf("SignOut failed: %v", err)
		}
		if p := principals.next(t); p != nil {
			t.Fatalf("expected absent principal after sign-out, got %+v", p)
		}

		_, err = a.SignInWithPassword(ctx, "ada@x.io", "wrongpassword")
		if got := apperr.CodeOf(err); got != apperr.CodeWrongPassword {
			t.Errorf("code = %q, want %q", got, apperr.CodeWrongPassword)
		}

		signed, err := a.SignInWithPassword(ctx, "ada@x.io", "longenough")
		if err != nil {
			t.Fatalf("SignInWithPassword failed: %v", err)
		}
		if p := principals.next(t); p == nil || p.ID != signed.ID {
			t.Fatalf("expected signed-in principal, got %+v", p)
		}
	})
}

func TestObserveTransactions(t *testing.T) {
	implementations(t, time.Hour, func(t *testing.T, a Adapter) {
		ctx := context.Background()
		p, err := a.RegisterWithPassword(ctx, "ada@x.io", "longenough")
		if err != nil {
			t.Fatalf("RegisterWithPassword failed: %v", err)
		}

		snaps, unsub := watchTransactions(t, a, p.ID)
		if s := nextSnapshot(t, snaps); s.err != nil || len(s.txs) != 0 {
			t.Fatalf("expected empty first snapshot, got %+v", s)
		}

		id, err := a.AddTransaction(ctx, models.TransactionDraft{
			UserID: p.ID, Amount: 12.5, Category: "Food", Date: "2024-06-01", Description: "lunch", Type: models.KindExpense,
		})
		if err != nil {
			t.Fatalf("AddTransaction failed: %v", err)
		}

		s := nextSnapshot(t, snaps)
		if s.err != nil || len(s.txs) != 1 || s.txs[0].ID != id {
			t.Fatalf("unexpected snapshot after add: %+v", s)
		}
		if s.txs[0].CreatedAt.IsZero() {
			t.Error("expected server timestamp")
		}

		unsub()
		unsub()
		if err := a.DeleteTransaction(ctx, id); err != nil {
			t.Fatalf("DeleteTransaction failed: %v", err)
		}
		select {
		case s := <-snaps:
			t.Errorf("unexpected delivery after unsubscribe: %+v", s)
		case <-time.After(100 * time.Millisecond):
		}
	})
}

func TestObserveForeignOwnerFailsOnce(t *testing.T) {
	implementations(t, time.Hour, func(t *testing.T, a Adapter) {
		if _, err := a.RegisterWithPassword(context.Background(), "ada@x.io", "longenough"); err != nil {
			t.Fatalf("RegisterWithPassword failed: %v", err)
		}

		snaps, _ := watchTransactions(t, a, "someone-else")
		s := nextSnapshot(t, snaps)
		if got := apperr.CodeOf(s.err); got != apperr.CodePermissionDenied {
			t.Fatalf("code = %q, want %q", got, apperr.CodePermissionDenied)
		}
		select {
		case s := <-snaps:
			t.Errorf("expected a single failure delivery, got %+v", s)
		case <-time.After(100 * time.Millisecond):
		}
	})
}

func TestExpiredTokenSignsOut(t *testing.T) {
	implementations(t, -time.Hour, func(t *testing.T, a Adapter) {
		ctx := context.Background()
		principals := watchPrincipal(t, a)
		principals.next(t)

		p, err := a.RegisterWithPassword(ctx, "ada@x.io", "longenough")
		if err != nil {
			t.Fatalf("RegisterWithPassword failed: %v", err)
		}
		principals.next(t)

		_, err = a.ReadUserProfile(ctx, p.ID)
		if got := apperr.CodeOf(err); got != apperr.CodeTokenExpired {
			t.Fatalf("code = %q, want %q", got, apperr.CodeTokenExpired)
		}
		if got := principals.next(t); got != nil {
			t.Errorf("expected principal to be cleared, got %+v", got)
		}
	})
}

func TestRemoteNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	r := NewRemote(nil, config.Backend{URL: url}, nil)
	_, err := r.SignInWithPassword(context.Background(), "ada@x.io", "longenough")
	if got := apperr.CodeOf(err); got != apperr.CodeNetwork {
		t.Errorf("code = %q, want %q (err %v)", got, apperr.CodeNetwork, err)
	}
	if got := apperr.Normalize(err); got != "Network error. Check your internet connection and try again." {
		t.Errorf("message = %q", got)
	}
}
