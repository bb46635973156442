package ports

import (
	"context"
	"time"

	"github.com/storefront/identity-api/internal/core/domain"
)

// AuthResult is returned by a successful login or registration.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      domain.UserSummary
}

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Current returns the account of the principal carried by ctx.
	Current(ctx context.Context) (*domain.UserSummary, error)
}

// RegistrationGuard serializes concurrent registrations of the same email.
// Acquire reports false when another registration holds the email; on
// success it returns a lease that Release must present, so an expired hold
// never removes a newer one.
type RegistrationGuard interface {
	Acquire(ctx context.Context, email string) (lease string, acquired bool, err error)
	Release(ctx context.Context, email, lease string) error
}
