package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/storefront/identity-api/internal/core/security"
	"github.com/storefront/identity-api/internal/pkg/metrics"
)

// Authorize enforces the route rules of policy against the principal
// resolved by Authenticate. A route that needs an identity reports the
// deferred authentication failure when one was recorded.
func Authorize(policy *security.Policy, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			state := security.AuthStateFrom(req.Context())

			path := routePath(c)
			decision := policy.Evaluate(req.Method, path, state.Principal)
			if decision.Allowed {
				return next(c)
			}

			metrics.AuthorizationDenialsTotal.WithLabelValues(decision.Reason.String()).Inc()
			log.Debug().
				Str("method", req.Method).
				Str("path", path).
				Stringer("reason", decision.Reason).
				Msg("request denied")

			if decision.Reason == security.DenyNoIdentity && state.Failure != nil {
				return state.Failure
			}
			return decision.Err()
		}
	}
}

// routePath is the pattern echo dispatched on, so the policy sees the same
// segments as the router. Unmatched requests fall back to the escaped path.
func routePath(c echo.Context) string {
	escaped := c.Request().URL.EscapedPath()
	if pattern := c.Path(); patternMatches(pattern, escaped) {
		return pattern
	}
	return escaped
}

// patternMatches reports whether an echo route pattern covers path.
func patternMatches(pattern, path string) bool {
	if pattern == "" {
		return false
	}
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range want {
		if seg == "*" && i == len(want)-1 {
			return true
		}
		if i >= len(got) {
			return false
		}
		if strings.HasPrefix(seg, ":") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return len(got) == len(want)
}
