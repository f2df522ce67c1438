// Package authflow coordinates sign-in, sign-up-on-demand and sign-out against
// the identity provider.
//
// Three listeners react to store actions: REHYDRATE, SIGN_IN and SIGN_OUT.
// Each trigger type is handled latest-wins: a new trigger cancels the pending
// handler of the same type, and a cancelled handler commits no further state
// transitions or notifications. Different trigger types are not exclusive.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/appshell-dev/appshell/internal/identity"
	"github.com/appshell-dev/appshell/internal/notify"
	"github.com/appshell-dev/appshell/internal/store"
)

const (
	SignInSuccessMessage  = "Sign in success."
	SignOutSuccessMessage = "Sign out success."
)

var (
	ErrNotRunning     = errors.New("auth flow is not running")
	ErrAlreadyStarted = errors.New("auth flow already started")
)

// IsUserNotFound reports whether err is the provider's "user not found"
// failure, which triggers registration instead of an error.
//
// This is an exact comparison with the provider SDK text. If the provider
// rewords the message, sign-in of unknown users fails with that message
// instead of registering them.
func IsUserNotFound(err error) bool {
	return err != nil && identity.Message(err) == identity.MessageUserNotFound
}

// Outcome is what the flow committed for one request
type Outcome struct {
	// Message is the notification shown for this request
	Message string
	// Superseded is set when a newer request of the same type took over
	// before this one committed anything
	Superseded bool
}

// Coordinator runs the authentication listeners against a store
type Coordinator struct {
	store    *store.Store
	identity identity.Service
	sink     notify.Sink
	logger   zerolog.Logger

	rehydrate latest
	signIn    latest
	signOut   latest

	faults chan error
	wg     sync.WaitGroup

	// pairs a dispatch with the handler it started
	dispatchMu sync.Mutex

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// New creates a coordinator. Start must be called before the store is
// rehydrated so the rehydrate listener sees the event.
func New(st *store.Store, svc identity.Service, sink notify.Sink, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:    st,
		identity: svc,
		sink:     sink,
		logger:   logger.With().Str("component", "authflow").Logger(),
		faults:   make(chan error, 16),
	}
}

// Start subscribes the listeners. Handlers stop committing once ctx is done.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsubscribe != nil {
		return ErrAlreadyStarted
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.unsubscribe = c.store.Subscribe(c.onAction)

	c.logger.Debug().Msg("Auth flow listeners started")
	return nil
}

// Close stops listening, cancels pending handlers and waits for them to return
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.ctx = nil
	c.mu.Unlock()

	c.wg.Wait()
}

// Wait blocks until every started handler returned
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Faults delivers sign-out failures. Nothing else escapes the flow.
func (c *Coordinator) Faults() <-chan error {
	return c.faults
}

// SignIn dispatches a sign-in request and waits until sign-in handling has
// settled, either by this request or by one that superseded it.
func (c *Coordinator) SignIn(ctx context.Context, req SignInRequest) (Outcome, error) {
	return c.request(ctx, &c.signIn, store.SignIn{Email: req.Email, Password: req.Password})
}

// SignOut dispatches a sign-out request and waits for it. The provider's
// failure is returned as is.
func (c *Coordinator) SignOut(ctx context.Context) (Outcome, error) {
	return c.request(ctx, &c.signOut, store.SignOut{})
}

func (c *Coordinator) request(ctx context.Context, l *latest, action store.Action) (Outcome, error) {
	if !c.running() {
		return Outcome{}, ErrNotRunning
	}

	c.dispatchMu.Lock()
	c.store.Dispatch(action)
	t := l.last()
	c.dispatchMu.Unlock()
	if t == nil {
		return Outcome{}, ErrNotRunning
	}

	if err := t.wait(ctx); err != nil {
		return Outcome{}, err
	}
	if t.committed {
		return Outcome{Message: t.message}, nil
	}

	// superseded: settle with the newer request so callers read its state
	if next := l.last(); next != t {
		if err := next.wait(ctx); err != nil && ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
	}
	return Outcome{Superseded: true}, nil
}

// show returns a commit effect recording message as the task's notification
func (c *Coordinator) show(t *task, message string) func() {
	return func() {
		t.message = message
		c.sink.Show(message)
	}
}

func (c *Coordinator) running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx != nil
}

func (c *Coordinator) onAction(action store.Action) {
	switch a := action.(type) {
	case store.Rehydrate:
		// no remote call: correct the state before Rehydrate returns
		c.runInline(&c.rehydrate, c.handleRehydrate)
	case store.SignIn:
		c.spawn(&c.signIn, "sign_in", func(t *task) error {
			return c.handleSignIn(t, a)
		})
	case store.SignOut:
		c.spawn(&c.signOut, "sign_out", c.handleSignOut)
	}
}

func (c *Coordinator) spawn(l *latest, flow string, handler func(*task) error) {
	c.mu.Lock()
	if c.ctx == nil {
		c.mu.Unlock()
		return
	}
	t := l.start(c.ctx)
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()

		err := handler(t)
		if err != nil {
			c.reportFault(flow, err)
		}
		t.finish(err)
	}()
}

func (c *Coordinator) runInline(l *latest, handler func(*task) error) {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil {
		return
	}

	t := l.start(ctx)
	t.finish(handler(t))
}

func (c *Coordinator) reportFault(flow string, err error) {
	c.logger.Error().Err(err).Str("flow", flow).Msg("Unhandled auth flow failure")

	select {
	case c.faults <- err:
	default:
		c.logger.Warn().Str("flow", flow).Msg("Fault channel full, dropping fault")
	}
}

// handleRehydrate clears a loading status restored from a previous run; the
// operation it stood for did not survive the restart.
func (c *Coordinator) handleRehydrate(t *task) error {
	if !store.Select(c.store, store.SelectIsAuthLoading) {
		return nil
	}

	if t.commit(func() { c.store.Dispatch(store.SignInError{}) }) {
		c.logger.Info().Msg("Reset stale loading status after rehydrate")
	}
	return nil
}

func (c *Coordinator) handleSignIn(t *task, req store.SignIn) error {
	log := c.logger.With().Str("flow", "sign_in").Str("email", req.Email).Logger()

	user, err := c.identity.Authenticate(t.ctx, req.Email, req.Password)
	if err == nil {
		c.completeSignIn(t, user, log)
		return nil
	}
	if t.superseded() {
		log.Debug().Msg("Sign in superseded")
		return nil
	}

	if !IsUserNotFound(err) {
		c.failSignIn(t, err, log)
		return nil
	}

	log.Info().Msg("User not found, registering")

	user, err = c.identity.Register(t.ctx, req.Email, req.Password)
	if err != nil {
		if t.superseded() {
			log.Debug().Msg("Sign in superseded")
			return nil
		}
		c.failSignIn(t, err, log)
		return nil
	}

	c.completeSignIn(t, user, log)
	return nil
}

// completeSignIn keeps the session's tokens and marks the user signed in in
// one commit, so a superseded result never reaches the token store.
func (c *Coordinator) completeSignIn(t *task, user *identity.User, log zerolog.Logger) {
	var saveErr error
	committed := t.commit(func() {
		if saveErr = c.identity.SaveSession(user); saveErr != nil {
			c.show(t, identity.Message(saveErr))()
			c.store.Dispatch(store.SignInError{})
			return
		}
		c.store.Dispatch(store.SignInSuccess{UserID: user.ID, UserEmail: user.Email})
		c.show(t, SignInSuccessMessage)()
	})
	if !committed {
		log.Debug().Msg("Discarded superseded sign in result")
		return
	}
	if saveErr != nil {
		log.Error().Err(saveErr).Msg("Sign in failed to keep the session")
		return
	}
	log.Info().Str("user_id", user.ID).Msg("Signed in")
}

func (c *Coordinator) failSignIn(t *task, err error, log zerolog.Logger) {
	message := identity.Message(err)

	committed := t.commit(
		c.show(t, message),
		func() { c.store.Dispatch(store.SignInError{}) },
	)
	if !committed {
		log.Debug().Msg("Discarded superseded sign in failure")
		return
	}
	log.Warn().Str("reason", message).Msg("Sign in failed")
}

func (c *Coordinator) handleSignOut(t *task) error {
	if err := c.identity.SignOut(t.ctx); err != nil {
		if t.superseded() {
			return nil
		}
		return fmt.Errorf("sign out: %w", err)
	}

	committed := t.commit(
		func() { c.store.Dispatch(store.SignOutSuccess{}) },
		func() { c.store.Dispatch(store.SetSideMenuIsOpen{IsOpen: false}) },
		c.show(t, SignOutSuccessMessage),
	)
	if committed {
		c.logger.Info().Str("flow", "sign_out").Msg("Signed out")
	}
	return nil
}
