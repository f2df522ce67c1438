package authflow

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidRequest = errors.New("invalid sign-in request")

var validate = validator.New()

// SignInRequest carries the credentials of one sign-in attempt. It is never
// retained after the attempt.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email" validate:"required,email"`
	Password string `json:"password" binding:"required" validate:"required"`
}

// Validate checks the request shape before it is handed to the provider
func (r SignInRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			field := fieldErrs[0]
			return fmt.Errorf("%w: %s failed on %q", ErrInvalidRequest, field.Field(), field.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
