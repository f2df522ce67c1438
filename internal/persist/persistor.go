package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/appshell-dev/appshell/internal/models"
	"github.com/appshell-dev/appshell/internal/store"
)

// Persistor saves store state to the database after every action and
// restores it at start-up
type Persistor struct {
	db     *gorm.DB
	store  *store.Store
	logger zerolog.Logger

	mu          sync.Mutex
	unsubscribe func()
}

func New(db *gorm.DB, st *store.Store, logger zerolog.Logger) *Persistor {
	return &Persistor{
		db:     db,
		store:  st,
		logger: logger.With().Str("component", "persist").Logger(),
	}
}

// Load reads the persisted state, or the initial state if none was saved
func (p *Persistor) Load(ctx context.Context) (store.State, error) {
	var row models.PersistedState
	err := p.db.WithContext(ctx).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return store.InitialState(), nil
		}
		return store.State{}, fmt.Errorf("failed to load state: %w", err)
	}

	return store.State{
		Auth: store.AuthSession{
			Status:    store.Status(row.Status),
			UserID:    row.UserID,
			UserEmail: row.UserEmail,
		},
		SideMenu: store.SideMenuState{IsOpen: row.SideMenuOpen},
	}, nil
}

// Save writes state into the singleton row
func (p *Persistor) Save(ctx context.Context, state store.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write(ctx, state)
}

// sync writes the store's current state. The state is read under the write
// lock so a slower writer never overwrites a newer snapshot.
func (p *Persistor) sync(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write(ctx, p.store.State())
}

func (p *Persistor) write(ctx context.Context, state store.State) error {
	db := p.db.WithContext(ctx)

	var row models.PersistedState
	err := db.First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load state: %w", err)
	}

	row.Status = string(state.Auth.Status)
	row.UserID = state.Auth.UserID
	row.UserEmail = state.Auth.UserEmail
	row.SideMenuOpen = state.SideMenu.IsOpen

	if err := db.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Rehydrate loads the persisted state into the store, which fires the
// rehydrate action, then keeps the database in sync with later actions.
// Listeners that react to rehydration must be subscribed before this call.
func (p *Persistor) Rehydrate(ctx context.Context) error {
	state, err := p.Load(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.unsubscribe == nil {
		p.unsubscribe = p.store.Subscribe(p.onAction)
	}
	p.mu.Unlock()

	if err := p.store.Rehydrate(state); err != nil {
		return err
	}

	p.logger.Debug().
		Str("status", string(state.Auth.Status)).
		Bool("side_menu_open", state.SideMenu.IsOpen).
		Msg("Rehydrated state")
	return nil
}

// Close stops saving
func (p *Persistor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
}

func (p *Persistor) onAction(action store.Action) {
	if action.Type() == store.ActionRehydrate {
		return
	}

	// always save the latest state, not the one this action produced
	if err := p.sync(context.Background()); err != nil {
		p.logger.Error().Err(err).Str("action", string(action.Type())).Msg("Failed to persist state")
	}
}
