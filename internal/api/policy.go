package api

import (
	"net/http"

	"github.com/storefront/identity-api/internal/core/domain"
	"github.com/storefront/identity-api/internal/core/security"
)

var members = security.RequireRoles(domain.RoleUser, domain.RoleAdmin)
var admins = security.RequireRoles(domain.RoleAdmin)

// AccessRules is the route table enforced by middleware.Authorize. Routes not
// listed here require an authenticated principal.
func AccessRules() []security.Rule {
	return []security.Rule{
		// Auth
		{Method: http.MethodPost, Pattern: "/auth/login", Access: security.Public},
		{Method: http.MethodPost, Pattern: "/auth/register", Access: security.Public},
		{Method: http.MethodGet, Pattern: "/auth/me", Access: security.Authenticated},

		// Users
		{Method: http.MethodGet, Pattern: "/users", Access: admins},
		{Method: http.MethodPatch, Pattern: "/users", Access: members},
		{Method: http.MethodDelete, Pattern: "/users", Access: members},
		{Method: "*", Pattern: "/users/:id", Access: admins},

		// Products
		{Method: http.MethodGet, Pattern: "/products", Access: security.Public},
		{Method: http.MethodPost, Pattern: "/products", Access: members},
		{Method: http.MethodGet, Pattern: "/products/me", Access: members},
		{Method: http.MethodGet, Pattern: "/products/user/:userId", Access: security.Public},
		{Method: http.MethodGet, Pattern: "/products/:id", Access: security.Public},
		{Method: "*", Pattern: "/products/:id", Access: members},

		// Operations
		{Method: http.MethodGet, Pattern: "/health", Access: security.Public},
		{Method: http.MethodGet, Pattern: "/health/ready", Access: security.Public},
		{Method: http.MethodGet, Pattern: "/metrics", Access: security.Public},
		{Method: http.MethodGet, Pattern: "/swagger/*", Access: security.Public},
	}
}
