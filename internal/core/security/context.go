package security

import (
	"context"

	"github.com/storefront/identity-api/internal/core/domain"
)

// AuthState is the outcome of request authentication. Principal is nil for
// anonymous requests. Failure holds the classified reason a presented token
// was not accepted; it is reported only if authorization later denies.
type AuthState struct {
	Principal *domain.Principal
	Failure   error
}

func (s AuthState) Authenticated() bool {
	return s.Principal != nil
}

type authStateKey struct{}

// WithAuthState returns a child context carrying s.
func WithAuthState(ctx context.Context, s AuthState) context.Context {
	return context.WithValue(ctx, authStateKey{}, s)
}

// AuthStateFrom returns the state stored in ctx, or the anonymous state.
func AuthStateFrom(ctx context.Context) AuthState {
	s, _ := ctx.Value(authStateKey{}).(AuthState)
	return s
}

// WithPrincipal returns a child context authenticated as p.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return WithAuthState(ctx, AuthState{Principal: &p})
}

// PrincipalFrom returns a copy of the request principal, if any.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	s := AuthStateFrom(ctx)
	if s.Principal == nil {
		return domain.Principal{}, false
	}
	return *s.Principal, true
}
