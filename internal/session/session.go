// Package session tracks who is signed in and drives the sign-in,
// registration and sign-out flows.
//
// A Controller is the only route to the signed-in principal's transaction
// store: the store is created on entering StatusSignedIn and disposed before
// any observer sees the controller leave it.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/fintrack/internal/adapter"
	"github.com/mmynk/fintrack/internal/apperr"
	"github.com/mmynk/fintrack/internal/feed"
	"github.com/mmynk/fintrack/internal/ledger"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/notify"
)

// Status is the controller's state.
type Status string

const (
	StatusUnknown        Status = "unknown"
	StatusSignedOut      Status = "signed-out"
	StatusAuthenticating Status = "authenticating"
	StatusRegistering    Status = "registering"
	StatusSignedIn       Status = "signed-in"
)

// MinPasswordLength mirrors the identity provider's rule so weak passwords
// are refused before any backend call.
const MinPasswordLength = 8

// User-facing messages.
const (
	MsgSignedIn       = "Signed In Successfully!!"
	MsgRegistered     = "User Registered Successfully"
	MsgLoggedOut      = "Logged out"
	MsgEmailRequired  = "Please enter your email"
	MsgNameRequired   = "Please enter your full name"
	MsgWeakPassword   = "Password must be at least 8 characters long"
	MsgBusy           = "Please wait for the current request to finish"
	MsgAlreadyIn      = "You are already signed in"
	MsgInterrupted    = "Sign-in was interrupted. Please try again."
	profileMissingMsg = "principal has no users document"
)

var (
	ErrBusy            = apperr.Validation(MsgBusy)
	ErrAlreadySignedIn = apperr.Validation(MsgAlreadyIn)
	ErrProfileMissing  = apperr.New(apperr.CodeProfileMissing, profileMissingMsg)
	ErrClosed          = errors.New("session controller closed")

	// ErrInterrupted is returned by a flow whose principal was signed out
	// or replaced before it could sign in.
	ErrInterrupted = errors.New("sign-in interrupted")
)

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	Status    Status
	Principal *models.Principal
	Profile   *models.UserProfile
}

// SignedIn reports whether the snapshot grants access to protected views.
func (s Snapshot) SignedIn() bool {
	return s.Status == StatusSignedIn
}

// Controller owns the current principal.
type Controller struct {
	adapter  adapter.Adapter
	notifier notify.Sink
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	state   Snapshot
	store   *ledger.Store
	attempt uint64
	unsub   adapter.Unsubscribe
	closed  bool
	states  feed.Feed[Snapshot]
	wg      sync.WaitGroup
}

// New creates a controller in StatusUnknown. Call Start to begin observing
// the adapter.
func New(a adapter.Adapter, notifier notify.Sink, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		adapter:  a,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		state:    Snapshot{Status: StatusUnknown},
	}
	c.states.Publish(c.state)
	return c
}

// Start subscribes to principal changes. It is a no-op when already started.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.unsub != nil || c.closed {
		c.mu.Unlock()
		return
	}
	c.unsub = func() {}
	c.mu.Unlock()

	unsub := c.adapter.ObservePrincipal(c.onPrincipal)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		unsub()
		return
	}
	c.unsub = unsub
	c.mu.Unlock()
}

// Close stops observing the adapter, disposes the store and drops every
// observer. It waits for background session restores to finish.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.attempt++
	unsub, store := c.unsub, c.store
	c.unsub, c.store = nil, nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if store != nil {
		store.Dispose()
	}
	c.states.Close()
	c.wg.Wait()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Observe delivers the current state immediately and then every change.
func (c *Controller) Observe(fn func(Snapshot)) adapter.Unsubscribe {
	return adapter.Unsubscribe(c.states.Subscribe(fn))
}

// Transactions returns the signed-in principal's store.
func (c *Controller) Transactions() (*ledger.Store, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusSignedIn || c.store == nil {
		return nil, false
	}
	return c.store, true
}

// SignIn authenticates with email and password. On success the controller
// is signed in; every failure is reported to the notifier once.
func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := c.validate(email, password); err != nil {
		return err
	}

	attempt, err := c.begin(StatusAuthenticating)
	if err != nil {
		return err
	}

	principal, err := c.adapter.SignInWithPassword(ctx, email, password)
	if err != nil {
		c.logger.Info("Sign in failed", "email", email, "error", err)
		c.abort(attempt)
		notify.Failure(c.notifier, apperr.Normalize(err))
		return err
	}

	if err := c.admit(ctx, attempt, principal); err != nil {
		c.interrupted(err)
		return err
	}
	c.notifier.Success(MsgSignedIn)
	return nil
}

// Register creates an account, writes its profile and signs in.
func (c *Controller) Register(ctx context.Context, fullName, email, password string) error {
	fullName, email = strings.TrimSpace(fullName), strings.TrimSpace(email)
	if fullName == "" {
		return c.invalid(MsgNameRequired)
	}
	if err := c.validate(email, password); err != nil {
		return err
	}

	attempt, err := c.begin(StatusRegistering)
	if err != nil {
		return err
	}

	principal, err := c.adapter.RegisterWithPassword(ctx, email, password)
	if err != nil {
		c.logger.Info("Registration failed", "email", email, "error", err)
		c.abort(attempt)
		notify.Failure(c.notifier, apperr.Normalize(err))
		return err
	}

	// The provider may normalize the address; store what it kept.
	profileEmail := principal.Email
	if profileEmail == "" {
		profileEmail = email
	}
	profile := &models.UserProfile{
		Email:     profileEmail,
		FullName:  fullName,
		CreatedAt: c.now().UTC().Format(time.RFC3339),
	}
	if err := c.adapter.WriteUserProfile(ctx, principal.ID, profile); err != nil {
		c.logger.Warn("Profile write failed", "user_id", principal.ID, "error", err)
		c.abort(attempt)
		notify.Failure(c.notifier, apperr.Normalize(err))
		c.signOutAdapter(ctx)
		return err
	}

	if err := c.enter(attempt, principal, profile); err != nil {
		c.interrupted(err)
		return err
	}
	c.logger.Info("User registered", "user_id", principal.ID)
	c.notifier.Success(MsgRegistered)
	return nil
}

// SignOut disposes the transaction store, leaves the signed-in state and
// signs the adapter out.
func (c *Controller) SignOut(ctx context.Context) error {
	c.leave()
	if err := c.adapter.SignOut(ctx); err != nil {
		c.logger.Warn("Sign out failed", "error", err)
		notify.Failure(c.notifier, apperr.Normalize(err))
		return err
	}
	c.notifier.Info(MsgLoggedOut)
	return nil
}

func (c *Controller) validate(email, password string) error {
	if email == "" {
		return c.invalid(MsgEmailRequired)
	}
	if len(password) < MinPasswordLength {
		return c.invalid(MsgWeakPassword)
	}
	return nil
}

func (c *Controller) invalid(msg string) error {
	err := apperr.Validation(msg)
	c.notifier.Error(apperr.Normalize(err))
	return err
}

// begin moves an idle controller into a flow state and returns the attempt
// that owns it.
func (c *Controller) begin(status Status) (uint64, error) {
	c.mu.Lock()
	var err error
	switch {
	case c.closed:
		err = ErrClosed
	case c.state.Status == StatusSignedIn:
		err = ErrAlreadySignedIn
	case c.state.Status == StatusAuthenticating || c.state.Status == StatusRegistering:
		err = ErrBusy
	}
	if err != nil {
		c.mu.Unlock()
		if !errors.Is(err, ErrClosed) {
			c.notifier.Error(apperr.Normalize(err))
		}
		return 0, err
	}

	c.attempt++
	attempt := c.attempt
	c.setLocked(Snapshot{Status: status})
	c.mu.Unlock()
	c.states.Flush()
	return attempt, nil
}

// abort returns to signed-out if attempt still owns the controller and
// reports whether it did.
func (c *Controller) abort(attempt uint64) bool {
	c.mu.Lock()
	if c.closed || c.attempt != attempt {
		c.mu.Unlock()
		return false
	}
	c.attempt++
	c.setLocked(Snapshot{Status: StatusSignedOut})
	c.mu.Unlock()
	c.states.Flush()
	return true
}

// admit reads the principal's profile and signs in, or refuses the
// principal when the profile is absent.
func (c *Controller) admit(ctx context.Context, attempt uint64, principal *models.Principal) error {
	profile, err := c.adapter.ReadUserProfile(ctx, principal.ID)
	if err == nil && profile == nil {
		err = ErrProfileMissing
	}
	if err != nil {
		c.logger.Info("Refusing principal", "user_id", principal.ID, "error", err)
		if c.abort(attempt) {
			notify.Failure(c.notifier, apperr.Normalize(err))
			c.signOutAdapter(ctx)
		}
		return err
	}

	return c.enter(attempt, principal, profile)
}

// enter publishes the signed-in state and starts the principal's store.
// It fails with ErrInterrupted when a newer flow or a principal change
// has taken over since attempt began.
func (c *Controller) enter(attempt uint64, principal *models.Principal, profile *models.UserProfile) error {
	p := *principal
	p.DisplayName = profile.FullName

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.attempt != attempt {
		c.mu.Unlock()
		c.logger.Info("Sign in superseded", "user_id", p.ID)
		return ErrInterrupted
	}
	store := ledger.New(c.adapter, p.ID, c.notifier, c.logger)
	c.store = store
	c.setLocked(Snapshot{Status: StatusSignedIn, Principal: &p, Profile: profile})
	c.mu.Unlock()

	store.Start()
	c.states.Flush()
	c.logger.Info("Signed in", "user_id", p.ID)
	return nil
}

// interrupted reports a user flow that lost the controller to a newer one.
func (c *Controller) interrupted(err error) {
	if errors.Is(err, ErrInterrupted) {
		notify.Failure(c.notifier, MsgInterrupted)
	}
}

// leave disposes the store, then publishes signed-out. Observers never see
// signed-out while the store is still live.
func (c *Controller) leave() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.attempt++
	attempt := c.attempt
	store := c.store
	c.store = nil
	c.mu.Unlock()

	if store != nil {
		store.Dispose()
	}

	c.mu.Lock()
	if c.closed || c.attempt != attempt || c.state.Status == StatusSignedOut {
		c.mu.Unlock()
		return
	}
	c.setLocked(Snapshot{Status: StatusSignedOut})
	c.mu.Unlock()
	c.states.Flush()
}

func (c *Controller) signOutAdapter(ctx context.Context) {
	if err := c.adapter.SignOut(ctx); err != nil {
		c.logger.Warn("Sign out failed", "error", err)
	}
}

// onPrincipal reacts to principal changes reported by the adapter.
func (c *Controller) onPrincipal(p *models.Principal) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	status := c.state.Status

	if p == nil {
		c.mu.Unlock()
		if status != StatusSignedOut {
			c.leave()
		}
		return
	}

	switch status {
	case StatusAuthenticating, StatusRegistering:
		// The flow in progress admits the principal itself.
		c.mu.Unlock()
		return
	case StatusSignedIn:
		if c.state.Principal != nil && c.state.Principal.ID == p.ID {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		c.leave()
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
	}

	// A principal restored by the adapter goes through the same profile check.
	c.attempt++
	attempt := c.attempt
	c.setLocked(Snapshot{Status: StatusAuthenticating})
	c.wg.Add(1)
	c.mu.Unlock()
	c.states.Flush()

	principal := *p
	go func() {
		defer c.wg.Done()
		_ = c.admit(context.Background(), attempt, &principal)
	}()
}

func (c *Controller) setLocked(s Snapshot) {
	c.state = s
	c.states.Stage(s)
}
