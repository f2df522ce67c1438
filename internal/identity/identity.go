package identity

import (
	"context"
	"errors"
)

// User is the identity returned by a successful authenticate or register call
type User struct {
	ID           string
	Email        string
	IDToken      string
	RefreshToken string
}

// Service is the external identity provider. Authenticate and Register have
// no local side effects; SaveSession keeps the returned credentials once the
// caller accepted the result.
type Service interface {
	Authenticate(ctx context.Context, email, password string) (*User, error)
	Register(ctx context.Context, email, password string) (*User, error)
	SaveSession(user *User) error
	SignOut(ctx context.Context) error
}

// AuthError is a provider failure. Message is the user-facing text in the
// provider SDK's "[auth/<code>] <description>" format.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// Message returns the user-facing text of err
func Message(err error) string {
	if err == nil {
		return ""
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return err.Error()
}
