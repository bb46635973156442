package ports

import (
	"context"

	"github.com/storefront/identity-api/internal/core/domain"
)

// CreateProductInput carries the fields of a new product.
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
}

// UpdateProductInput carries a partial product update; nil fields are kept.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
}

// ProductService defines product use cases. Mutations are scoped to the
// principal carried by ctx.
type ProductService interface {
	List(ctx context.Context) ([]*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Product, error)
	ListMine(ctx context.Context) ([]*domain.Product, error)
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	Update(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}
