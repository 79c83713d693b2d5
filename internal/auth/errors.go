package auth

import "errors"

var (
	// ErrValidation marks form input that failed validation.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned for a wrong password or a missing role.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrProtectedAccount is returned when a user-management route targets the
	// admin account or an account sharing its identity.
	ErrProtectedAccount = errors.New("account is protected")
)

// ValidationError names the offending form field. Msg is safe to show users.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e ValidationError) Unwrap() error { return ErrValidation }
