package store

import (
	"errors"
	"sync"
)

var ErrAlreadyRehydrated = errors.New("store already rehydrated")

// Listener is called after an action has been reduced
type Listener func(Action)

// Store owns the application state. All writes go through Dispatch and are
// serialized; listeners run after the reducer, outside the state lock, in
// registration order.
type Store struct {
	mu         sync.RWMutex
	state      State
	rehydrated bool

	listenersMu sync.Mutex
	listeners   []subscription
	nextID      int
}

type subscription struct {
	id int
	fn Listener
}

// New creates a store holding the initial state
func New() *Store {
	return &Store{state: InitialState()}
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Select reads a piece of state through a selector
func Select[T any](s *Store, sel Selector[T]) T {
	return sel(s.State())
}

// Dispatch reduces the action into the state and notifies listeners
func (s *Store) Dispatch(action Action) {
	s.mu.Lock()
	s.state = reduce(s.state, action)
	s.mu.Unlock()

	s.listenersMu.Lock()
	listeners := make([]subscription, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l.fn(action)
	}
}

// Rehydrate restores persisted state and fires the rehydrate action. It can
// only happen once per store.
func (s *Store) Rehydrate(state State) error {
	s.mu.Lock()
	if s.rehydrated {
		s.mu.Unlock()
		return ErrAlreadyRehydrated
	}
	s.rehydrated = true
	s.mu.Unlock()

	s.Dispatch(Rehydrate{State: state})
	return nil
}

// Subscribe registers a listener and returns a function removing it
func (s *Store) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func reduce(state State, action Action) State {
	switch a := action.(type) {
	case Rehydrate:
		state = a.State
		if !state.Auth.Status.Valid() {
			state.Auth = AuthSession{Status: StatusIdle}
		}
		if state.Auth.Status == StatusAuthenticated && (state.Auth.UserID == "" || state.Auth.UserEmail == "") {
			state.Auth = AuthSession{Status: StatusIdle}
		}
	case SignIn:
		state.Auth = AuthSession{Status: StatusLoading}
	case SignInSuccess:
		state.Auth = AuthSession{
			Status:    StatusAuthenticated,
			UserID:    a.UserID,
			UserEmail: a.UserEmail,
		}
	case SignInError:
		state.Auth = AuthSession{Status: StatusError}
	case SignOutSuccess:
		state.Auth = AuthSession{Status: StatusIdle}
	case SetSideMenuIsOpen:
		state.SideMenu.IsOpen = a.IsOpen
	}
	return state
}
