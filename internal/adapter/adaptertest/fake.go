// Package adaptertest provides an in-memory adapter.Adapter for tests.
//
// The fake delivers principal changes and snapshots synchronously on the
// calling goroutine, which keeps controller tests deterministic.
package adaptertest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/fintrack/internal/adapter"
	"github.com/mmynk/fintrack/internal/apperr"
	"github.com/mmynk/fintrack/internal/feed"
	"github.com/mmynk/fintrack/internal/models"
)

// Ensure Fake implements adapter.Adapter
var _ adapter.Adapter = (*Fake)(nil)

type account struct {
	principal models.Principal
	password  string
}

type watcher struct {
	owner string
	fn    func([]models.Transaction, error)
}

// Fake is an in-memory backend. Set the *Err fields to make the
// corresponding operation fail.
type Fake struct {
	SignInErr      error
	RegisterErr    error
	ReadProfileErr error
	WriteErr       error
	AddErr         error
	DeleteErr      error

	// OnReadProfile, when set, runs at the start of ReadUserProfile.
	OnReadProfile func()

	mu         sync.Mutex
	accounts   map[string]*account
	profiles   map[string]*models.UserProfile
	txs        map[string]models.Transaction
	watchers   map[int]*watcher
	nextID     int
	calls      map[string]int
	clock      time.Time
	principal  *models.Principal
	principals feed.Feed[*models.Principal]
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		accounts: make(map[string]*account),
		profiles: make(map[string]*models.UserProfile),
		txs:      make(map[string]models.Transaction),
		watchers: make(map[int]*watcher),
		calls:    make(map[string]int),
		clock:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// AddAccount seeds an account. When withProfile is set, users/{uid} exists too.
// Emails are stored lowercased, as the identity provider does.
func (f *Fake) AddAccount(email, password string, withProfile bool) *models.Principal {
	email = strings.ToLower(email)
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	p := models.Principal{ID: fmt.Sprintf("uid-%d", f.nextID), Email: email}
	f.accounts[email] = &account{principal: p, password: password}
	if withProfile {
		f.profiles[p.ID] = &models.UserProfile{Email: email, CreatedAt: f.clock.Format(time.RFC3339)}
	}
	return &p
}

// SetPrincipal simulates an auth state change originating in the backend,
// such as a restored session or an expired token.
func (f *Fake) SetPrincipal(p *models.Principal) {
	f.mu.Lock()
	f.principal = p
	f.principals.Stage(p)
	f.mu.Unlock()
	f.principals.Flush()
}

// Calls returns how many times the named operation ran.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Profile returns the stored users/{uid} document.
func (f *Fake) Profile(uid string) *models.UserProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[uid]
}

// Watchers returns the number of open live queries for owner.
func (f *Fake) Watchers(owner string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.watchers {
		if w.owner == owner {
			n++
		}
	}
	return n
}

// Emit delivers txs verbatim to every watcher of owner, bypassing the store.
func (f *Fake) Emit(owner string, txs []models.Transaction) {
	for _, fn := range f.watchersOf(owner) {
		fn(slices.Clone(txs), nil)
	}
}

// FailStream delivers err to every watcher of owner and closes them.
func (f *Fake) FailStream(owner string, err error) {
	f.mu.Lock()
	var fns []func([]models.Transaction, error)
	for id, w := range f.watchers {
		if w.owner == owner {
			fns = append(fns, w.fn)
			delete(f.watchers, id)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(nil, err)
	}
}

func (f *Fake) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *Fake) ObservePrincipal(fn func(*models.Principal)) adapter.Unsubscribe {
	return adapter.Unsubscribe(f.principals.Subscribe(fn))
}

func (f *Fake) SignInWithPassword(ctx context.Context, email, password string) (*models.Principal, error) {
	f.record("SignIn")
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}

	f.mu.Lock()
	acc, ok := f.accounts[strings.ToLower(email)]
	f.mu.Unlock()
	if !ok {
		return nil, apperr.New(apperr.CodeUserNotFound, "no account for this email")
	}
	if acc.password != password {
		return nil, apperr.New(apperr.CodeWrongPassword, "wrong password")
	}

	p := acc.principal
	f.SetPrincipal(&p)
	return &p, nil
}

func (f *Fake) RegisterWithPassword(ctx context.Context, email, password string) (*models.Principal, error) {
	f.record("Register")
	if f.RegisterErr != nil {
		return nil, f.RegisterErr
	}

	f.mu.Lock()
	_, exists := f.accounts[strings.ToLower(email)]
	f.mu.Unlock()
	if exists {
		return nil, apperr.New(apperr.CodeEmailInUse, "email already registered")
	}

	p := f.AddAccount(email, password, true)
	f.SetPrincipal(p)
	return p, nil
}

func (f *Fake) SignOut(ctx context.Context) error {
	f.record("SignOut")
	f.SetPrincipal(nil)
	return nil
}

func (f *Fake) ReadUserProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	f.record("ReadProfile")
	if f.OnReadProfile != nil {
		f.OnReadProfile()
	}
	if f.ReadProfileErr != nil {
		return nil, f.ReadProfileErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[uid]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (f *Fake) WriteUserProfile(ctx context.Context, uid string, profile *models.UserProfile) error {
	f.record("WriteProfile")
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *profile
	f.profiles[uid] = &c
	return nil
}

// ObserveTransactions delivers the current snapshot before returning.
func (f *Fake) ObserveTransactions(ownerID string, fn func([]models.Transaction, error)) adapter.Unsubscribe {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.watchers[id] = &watcher{owner: ownerID, fn: fn}
	snapshot := f.snapshotLocked(ownerID)
	f.mu.Unlock()

	fn(snapshot, nil)

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.watchers, id)
			f.mu.Unlock()
		})
	}
}

func (f *Fake) AddTransaction(ctx context.Context, draft models.TransactionDraft) (string, error) {
	f.record("AddTransaction")
	if f.AddErr != nil {
		return "", f.AddErr
	}

	f.mu.Lock()
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	tx := models.Transaction{
		ID:          fmt.Sprintf("tx-%d", f.nextID),
		UserID:      draft.UserID,
		Amount:      draft.Amount,
		Category:    draft.Category,
		Date:        draft.Date,
		Description: draft.Description,
		Type:        draft.Type,
		CreatedAt:   f.clock,
	}
	f.txs[tx.ID] = tx
	f.mu.Unlock()

	f.publish(tx.UserID)
	return tx.ID, nil
}

// PutTransaction stores tx as-is and publishes a snapshot to its owner.
func (f *Fake) PutTransaction(tx models.Transaction) {
	f.mu.Lock()
	f.txs[tx.ID] = tx
	f.mu.Unlock()
	f.publish(tx.UserID)
}

func (f *Fake) DeleteTransaction(ctx context.Context, id string) error {
	f.record("DeleteTransaction")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}

	f.mu.Lock()
	tx, ok := f.txs[id]
	delete(f.txs, id)
	f.mu.Unlock()

	if ok {
		f.publish(tx.UserID)
	}
	return nil
}

func (f *Fake) publish(owner string) {
	f.mu.Lock()
	snapshot := f.snapshotLocked(owner)
	f.mu.Unlock()
	for _, fn := range f.watchersOf(owner) {
		fn(slices.Clone(snapshot), nil)
	}
}

func (f *Fake) watchersOf(owner string) []func([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]int, 0, len(f.watchers))
	for id, w := range f.watchers {
		if w.owner == owner {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	fns := make([]func([]models.Transaction, error), len(ids))
	for i, id := range ids {
		fns[i] = f.watchers[id].fn
	}
	return fns
}

// snapshotLocked returns owner's transactions in backend (insertion) order,
// which the store must not rely on.
func (f *Fake) snapshotLocked(owner string) []models.Transaction {
	out := []models.Transaction{}
	for _, tx := range f.txs {
		if tx.UserID == owner {
			out = append(out, tx)
		}
	}
	slices.SortFunc(out, func(a, b models.Transaction) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
