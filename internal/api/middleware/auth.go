package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/storefront/identity-api/internal/core/domain"
	"github.com/storefront/identity-api/internal/core/ports"
	"github.com/storefront/identity-api/internal/core/security"
	"github.com/storefront/identity-api/internal/pkg/metrics"
)

// TokenDecoder verifies bearer tokens.
type TokenDecoder interface {
	Decode(token string) (*security.Claims, error)
}

// UserLookup resolves the account named by a token subject. Emails are
// matched ignoring case.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Authenticate resolves the request principal from the Authorization header
// and stores the outcome as a security.AuthState on the request context. It
// never rejects a request: failures are recorded and reported by Authorize
// only if the route turns out to need an identity.
func Authenticate(tokens TokenDecoder, users UserLookup, activity ports.ActivityRecorder, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			token := bearerToken(req.Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return next(c)
			}

			state := resolve(req.Context(), token, tokens, users)
			if state.Failure != nil {
				reason := failureReason(state.Failure)
				metrics.TokenFailuresTotal.WithLabelValues(reason).Inc()
				log.Debug().Err(state.Failure).Str("path", req.URL.Path).Msg("bearer token rejected")
				if activity != nil {
					activity.Record(domain.Activity{
						Kind:       domain.ActivityTokenRejected,
						Reason:     reason,
						RemoteAddr: c.RealIP(),
						OccurredAt: time.Now().UTC(),
					})
				}
			}

			c.SetRequest(req.WithContext(security.WithAuthState(req.Context(), state)))
			return next(c)
		}
	}
}

func resolve(ctx context.Context, token string, tokens TokenDecoder, users UserLookup) security.AuthState {
	claims, err := tokens.Decode(token)
	if err != nil {
		if errors.Is(err, security.ErrNoToken) {
			return security.AuthState{}
		}
		return security.AuthState{Failure: err}
	}

	user, err := users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return security.AuthState{Failure: domain.ErrIdentityGone}
		}
		return security.AuthState{Failure: err}
	}
	// A subject re-registered after deletion is a different account.
	if claims.UserID != "" && claims.UserID != user.ID {
		return security.AuthState{Failure: domain.ErrIdentityGone}
	}

	principal := domain.NewPrincipal(user)
	return security.AuthState{Principal: &principal}
}

// bearerToken extracts the token of an "Authorization: Bearer <token>"
// header. Any other shape yields "".
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, domain.ErrTokenUnsupported):
		return "unsupported"
	case errors.Is(err, domain.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, domain.ErrIdentityGone):
		return "identity_gone"
	default:
		return "lookup_error"
	}
}
