// Package apptest builds an app.App backed by a temporary database and a
// scripted identity provider.
package apptest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/appshell-dev/appshell/internal/app"
	"github.com/appshell-dev/appshell/internal/config"
	"github.com/appshell-dev/appshell/internal/identity"
)

// Identity is an identity.Service with a fixed set of accounts.
// Unknown emails are rejected with the provider's user-not-found message.
type Identity struct {
	mu         sync.Mutex
	passwords  map[string]string
	sessions   []string
	SignOutErr error
}

func NewIdentity() *Identity {
	return &Identity{passwords: map[string]string{}}
}

// Add registers an account
func (i *Identity) Add(email, password string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.passwords[email] = password
}

func (i *Identity) Authenticate(_ context.Context, email, password string) (*identity.User, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	stored, ok := i.passwords[email]
	if !ok {
		return nil, &identity.AuthError{Code: "auth/user-not-found", Message: identity.MessageUserNotFound}
	}
	if stored != password {
		return nil, &identity.AuthError{Code: "auth/wrong-password", Message: identity.MessageWrongPassword}
	}
	return &identity.User{ID: "uid-" + email, Email: email}, nil
}

func (i *Identity) Register(_ context.Context, email, password string) (*identity.User, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.passwords[email]; ok {
		return nil, &identity.AuthError{Code: "auth/email-already-in-use", Message: identity.MessageEmailInUse}
	}
	i.passwords[email] = password
	return &identity.User{ID: "uid-" + email, Email: email}, nil
}

func (i *Identity) SaveSession(user *identity.User) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sessions = append(i.sessions, user.Email)
	return nil
}

// Sessions lists the emails whose session was kept, oldest first
func (i *Identity) Sessions() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.sessions...)
}

func (i *Identity) SignOut(context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.SignOutErr
}

// Config returns a configuration pointing at a fresh database in a temp dir
func Config(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Database.URL = filepath.Join(t.TempDir(), "appshell.sqlite")
	cfg.Identity.TokenStore = "memory"
	return cfg
}

// Start builds and starts an app. It is closed when the test ends.
func Start(t *testing.T, cfg *config.Config, svc identity.Service) *app.App {
	t.Helper()

	a, err := app.New(cfg, zerolog.Nop(), app.WithIdentity(svc))
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() { _ = a.Close() })

	return a
}
