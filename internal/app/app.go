// Package app wires the store, the auth flow and their collaborators into one
// runtime shared by the CLI and the HTTP shell.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/appshell-dev/appshell/internal/authflow"
	"github.com/appshell-dev/appshell/internal/config"
	"github.com/appshell-dev/appshell/internal/identity"
	"github.com/appshell-dev/appshell/internal/menu"
	"github.com/appshell-dev/appshell/internal/notify"
	"github.com/appshell-dev/appshell/internal/persist"
	"github.com/appshell-dev/appshell/internal/store"
)

// App holds the running shell
type App struct {
	Config      *config.Config
	Logger      zerolog.Logger
	DB          *gorm.DB
	Store       *store.Store
	Snackbar    *notify.Snackbar
	Coordinator *authflow.Coordinator
	Menu        *menu.SideMenu

	// Redis is nil when no notification queue is configured
	Redis *redis.Client

	persistor *persist.Persistor
}

// Option customises New
type Option func(*options)

type options struct {
	identity identity.Service
}

// WithIdentity replaces the identity provider built from the configuration
func WithIdentity(svc identity.Service) Option {
	return func(o *options) {
		o.identity = svc
	}
}

// New builds the runtime. Nothing listens to the store until Start.
func New(cfg *config.Config, zlog zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := persist.Open(cfg.Database.URL, zlog)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Logger:   zlog,
		DB:       db,
		Store:    store.New(),
		Snackbar: notify.NewSnackbar(cfg.Snackbar.Duration, cfg.Snackbar.History),
	}

	sinks := notify.Multi{a.Snackbar, notify.NewLogSink(zlog)}
	if cfg.Redis.Address != "" {
		a.Redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
		sinks = append(sinks, notify.NewTaskSink(asynq.NewClientFromRedisClient(a.Redis), zlog))
		zlog.Debug().Str("redis", cfg.Redis.Address).Msg("Notifications queued for the worker")
	} else {
		sinks = append(sinks, persist.NewRecordSink(db, zlog))
	}

	svc := o.identity
	if svc == nil {
		svc = identity.NewFirebaseClient(
			cfg.Identity.BaseURL,
			cfg.Identity.APIKey,
			cfg.Identity.RequestTimeout,
			tokenStore(cfg),
			zlog,
		)
	}

	a.Coordinator = authflow.New(a.Store, svc, sinks, zlog)
	a.Menu = menu.New(a.Store)
	a.persistor = persist.New(db, a.Store, zlog)

	return a, nil
}

func tokenStore(cfg *config.Config) identity.TokenStore {
	if cfg.Identity.TokenStore == "memory" {
		return identity.NewMemoryStore()
	}
	return identity.NewKeyringStore(cfg.Identity.KeyringService)
}

// Start starts the auth flow and then restores the persisted state, so a
// session interrupted while loading is reset before Start returns.
func (a *App) Start(ctx context.Context) error {
	if err := a.Coordinator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start auth flow: %w", err)
	}

	if err := a.persistor.Rehydrate(ctx); err != nil {
		a.Coordinator.Close()
		return fmt.Errorf("failed to restore state: %w", err)
	}

	return nil
}

// PingQueue checks the notification queue. It returns false when no queue
// is configured.
func (a *App) PingQueue(ctx context.Context) (bool, error) {
	if a.Redis == nil {
		return false, nil
	}
	return true, a.Redis.Ping(ctx).Err()
}

// Session returns the current auth session
func (a *App) Session() store.AuthSession {
	return store.Select(a.Store, store.SelectAuthSession)
}

// Close stops the flow, waits for pending handlers and releases resources
func (a *App) Close() error {
	a.Coordinator.Close()
	a.persistor.Close()

	// the asynq client shares this connection and is closed with it
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			a.Logger.Warn().Err(err).Msg("Error closing Redis client")
		}
	}

	return persist.Close(a.DB)
}
