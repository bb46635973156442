package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/storefront/identity-api/internal/core/domain"
	"github.com/storefront/identity-api/internal/pkg/metrics"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type apiError struct {
	status  int
	code    string
	message string
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to their HTTP status and classification code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<CODE>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		ae := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(ae.status)
			return
		}
		_ = c.JSON(ae.status, errorResponse{Error: ae.message, Code: ae.code})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) apiError {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return apiError{status: he.Code, code: statusCode(he.Code), message: fmt.Sprintf("%v", he.Message)}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apiError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password"}
	case errors.Is(err, domain.ErrDuplicateEmail):
		return apiError{http.StatusConflict, "DUPLICATE_EMAIL", "email is already registered"}
	case errors.Is(err, domain.ErrTokenExpired):
		return apiError{http.StatusUnauthorized, "TOKEN_EXPIRED", "token has expired, please login again"}
	case domain.IsTokenFailure(err):
		log.Debug().Err(err).Str("path", c.Request().URL.Path).Msg("invalid bearer token")
		return apiError{http.StatusUnauthorized, "TOKEN_INVALID", "invalid token"}
	case errors.Is(err, domain.ErrIdentityGone):
		return apiError{http.StatusUnauthorized, "IDENTITY_GONE", "account no longer exists"}
	case errors.Is(err, domain.ErrNoIdentity), errors.Is(err, domain.ErrInsufficientRole):
		return apiError{http.StatusUnauthorized, "UNAUTHORIZED", "authentication required"}
	case errors.Is(err, domain.ErrNotOwner):
		metrics.AuthorizationDenialsTotal.WithLabelValues("not_owner").Inc()
		return apiError{http.StatusForbidden, "FORBIDDEN", "you do not own this resource"}
	case errors.Is(err, domain.ErrUserNotFound):
		return apiError{http.StatusNotFound, "USER_NOT_FOUND", "user not found"}
	case errors.Is(err, domain.ErrProductNotFound):
		return apiError{http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found"}
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyPassword):
		return apiError{http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error()}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return apiError{http.StatusInternalServerError, "INTERNAL", "internal server error"}
}

// statusCode derives a classification code from an HTTP status, e.g.
// 404 -> NOT_FOUND.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
