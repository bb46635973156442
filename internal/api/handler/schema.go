package handler

import (
	"time"

	"github.com/storefront/identity-api/internal/core/domain"
	"github.com/storefront/identity-api/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type authResponse struct {
	Token     string             `json:"token"`
	Type      string             `json:"type"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      domain.UserSummary `json:"user"`
}

func toAuthResponse(r *ports.AuthResult) authResponse {
	return authResponse{Token: r.Token, Type: "Bearer", ExpiresAt: r.ExpiresAt, User: r.User}
}

// --- Users ---

type updateProfileRequest struct {
	Name     *string `json:"name"     validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email"    validate:"omitempty,email,max=254"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
}

type updateUserRequest struct {
	updateProfileRequest
	Role *string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

func (r updateProfileRequest) toInput() ports.UpdateUserInput {
	return ports.UpdateUserInput{Name: r.Name, Email: r.Email, Password: r.Password}
}

func (r updateUserRequest) toInput() ports.UpdateUserInput {
	in := r.updateProfileRequest.toInput()
	if r.Role != nil {
		role := domain.Role(*r.Role)
		in.Role = &role
	}
	return in
}

type deleteUserResponse struct {
	Message string             `json:"message"`
	User    domain.UserSummary `json:"user"`
}

// --- Products ---

type createProductRequest struct {
	Name        string  `json:"name"        validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price"       validate:"required,gt=0,lte=1000000"`
}

type updateProductRequest struct {
	Name        *string  `json:"name"        validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Price       *float64 `json:"price"       validate:"omitempty,gt=0,lte=1000000"`
}
