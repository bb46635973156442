package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/storefront/identity-api/internal/core/domain"
	"github.com/storefront/identity-api/internal/core/security"
)

// principal returns the authenticated caller. The route table guarantees one
// on every route that calls it; the check only guards misconfiguration.
func principal(c echo.Context) (domain.Principal, error) {
	p, ok := security.PrincipalFrom(c.Request().Context())
	if !ok {
		return domain.Principal{}, domain.ErrNoIdentity
	}
	return p, nil
}
