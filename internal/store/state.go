package store

// Status is the authentication status of the session
type Status string

const (
	StatusIdle          Status = "idle"
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
	StatusError         Status = "error"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusLoading, StatusAuthenticated, StatusError:
		return true
	}
	return false
}

// AuthSession is the current authentication state.
// Status is authenticated exactly when UserID and UserEmail are both set.
type AuthSession struct {
	Status    Status `json:"status"`
	UserID    string `json:"user_id,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// SideMenuState tracks whether the side menu is open
type SideMenuState struct {
	IsOpen bool `json:"is_open"`
}

// State is the whole application state held by a Store
type State struct {
	Auth     AuthSession   `json:"auth"`
	SideMenu SideMenuState `json:"side_menu"`
}

// InitialState is the state at process start before rehydration
func InitialState() State {
	return State{
		Auth: AuthSession{Status: StatusIdle},
	}
}

// Selector reads one piece of state
type Selector[T any] func(State) T

func SelectAuthSession(s State) AuthSession {
	return s.Auth
}

func SelectAuthStatus(s State) Status {
	return s.Auth.Status
}

func SelectIsAuthLoading(s State) bool {
	return s.Auth.Status == StatusLoading
}

func SelectIsAuthenticated(s State) bool {
	return s.Auth.Status == StatusAuthenticated
}

func SelectSideMenuIsOpen(s State) bool {
	return s.SideMenu.IsOpen
}
