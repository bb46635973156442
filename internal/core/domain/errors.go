package domain

import "errors"

// Authentication failures.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateEmail     = errors.New("email is already registered")
	ErrIdentityGone       = errors.New("account no longer exists")
	ErrEmptyPassword      = errors.New("password must not be empty")
)

// Token failures. Each decode failure is exactly one of these.
var (
	ErrTokenMalformed        = errors.New("token is malformed")
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")
	ErrTokenExpired          = errors.New("token has expired")
	ErrTokenUnsupported      = errors.New("token algorithm is not supported")
)

// Authorization failures.
var (
	ErrNoIdentity       = errors.New("authentication required")
	ErrInsufficientRole = errors.New("insufficient role")
	ErrNotOwner         = errors.New("caller does not own the resource")
)

// Lookups and input.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
)

// IsTokenFailure reports whether err is one of the token decode classes.
func IsTokenFailure(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenSignatureInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenUnsupported)
}
