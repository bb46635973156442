package ports

import (
	"context"

	"github.com/storefront/identity-api/internal/core/domain"
)

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	// DeleteByOwner removes every product owned by ownerID and returns the count.
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}
