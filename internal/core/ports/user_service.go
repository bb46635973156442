package ports

import (
	"context"

	"github.com/storefront/identity-api/internal/core/domain"
)

// UpdateUserInput carries a partial profile update. Nil fields are left
// unchanged. Role may only be set by an admin.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *domain.Role
}

// UserService defines account management operations. The acting principal
// is read from ctx.
type UserService interface {
	List(ctx context.Context) ([]domain.UserSummary, error)
	Get(ctx context.Context, id string) (*domain.UserSummary, error)
	Update(ctx context.Context, id string, input UpdateUserInput) (*domain.UserSummary, error)
	Delete(ctx context.Context, id string) (*domain.UserSummary, error)
}
