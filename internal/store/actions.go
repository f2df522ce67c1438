package store

// ActionType identifies an action
type ActionType string

const (
	ActionRehydrate         ActionType = "persist/REHYDRATE"
	ActionSignIn            ActionType = "auth/SIGN_IN"
	ActionSignInSuccess     ActionType = "auth/SIGN_IN_SUCCESS"
	ActionSignInError       ActionType = "auth/SIGN_IN_ERROR"
	ActionSignOut           ActionType = "auth/SIGN_OUT"
	ActionSignOutSuccess    ActionType = "auth/SIGN_OUT_SUCCESS"
	ActionSetSideMenuIsOpen ActionType = "app/SET_SIDE_MENU_IS_OPEN"
)

// Action is anything that can be dispatched to a Store
type Action interface {
	Type() ActionType
}

// Rehydrate replaces the whole state with a previously persisted one
type Rehydrate struct {
	State State
}

// SignIn requests a sign-in. The password is only carried to listeners and
// never stored in state.
type SignIn struct {
	Email    string
	Password string
}

type SignInSuccess struct {
	UserID    string
	UserEmail string
}

type SignInError struct{}

// SignOut requests a sign-out
type SignOut struct{}

type SignOutSuccess struct{}

type SetSideMenuIsOpen struct {
	IsOpen bool
}

func (Rehydrate) Type() ActionType         { return ActionRehydrate }
func (SignIn) Type() ActionType            { return ActionSignIn }
func (SignInSuccess) Type() ActionType     { return ActionSignInSuccess }
func (SignInError) Type() ActionType       { return ActionSignInError }
func (SignOut) Type() ActionType           { return ActionSignOut }
func (SignOutSuccess) Type() ActionType    { return ActionSignOutSuccess }
func (SetSideMenuIsOpen) Type() ActionType { return ActionSetSideMenuIsOpen }
