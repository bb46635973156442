package ports

import (
	"context"

	"github.com/storefront/identity-api/internal/core/domain"
)

// UserRepository is the credential store. Email arguments are matched
// ignoring case; implementations fold them before querying.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	// Create persists a new user and returns it with its store-assigned ID.
	// A concurrent insert of the same email fails with domain.ErrDuplicateEmail.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}
