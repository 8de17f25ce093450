package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint was violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrForbidden indicates the caller lacks the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account exists but is deactivated.
	ErrInactiveAccount = errors.New("account inactive")
	// ErrTooManyAttempts indicates the login throttle rejected the attempt.
	ErrTooManyAttempts = errors.New("too many attempts")
)
