package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/identity-api/internal/core/domain"
	"github.com/storefront/identity-api/internal/core/ports"
	"github.com/storefront/identity-api/internal/core/security"
)

const maxPrice = 1_000_000.00

// ProductService implements product use cases with owner-scoped mutations.
type ProductService struct {
	repo   ports.ProductRepository
	users  ports.UserRepository
	policy *security.Policy
	log    zerolog.Logger
}

func NewProductService(repo ports.ProductRepository, users ports.UserRepository, policy *security.Policy, log zerolog.Logger) *ProductService {
	return &ProductService{repo: repo, users: users, policy: policy, log: log}
}

func (s *ProductService) List(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.List(ctx)
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}

// ListByOwner returns the products of an existing user.
func (s *ProductService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Product, error) {
	if _, err := s.users.FindByID(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *ProductService) ListMine(ctx context.Context) ([]*domain.Product, error) {
	principal, ok := security.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNoIdentity
	}
	return s.repo.ListByOwner(ctx, principal.ID)
}

// Create stores a product owned by the request principal.
func (s *ProductService) Create(ctx context.Context, in ports.CreateProductInput) (*domain.Product, error) {
	principal, ok := security.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNoIdentity
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if err := checkPrice(in.Price); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.Product{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		OwnerID:     principal.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create product")
		return nil, err
	}

	s.log.Info().Str("product_id", created.ID).Str("owner_id", principal.ID).Msg("product created")
	return created, nil
}

// Update applies a partial update. Only the owner or an admin may do so.
func (s *ProductService) Update(ctx context.Context, id string, in ports.UpdateProductInput) (*domain.Product, error) {
	product, principal, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
		}
		product.Name = name
	}
	if in.Description != nil {
		product.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if err := checkPrice(*in.Price); err != nil {
			return nil, err
		}
		product.Price = *in.Price
	}
	product.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("product_id", id).Str("actor_id", principal.ID).Msg("product updated")
	return updated, nil
}

// Delete removes a product. Only the owner or an admin may do so.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	_, principal, err := s.loadOwned(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("product_id", id).Str("actor_id", principal.ID).Msg("product deleted")
	return nil
}

// loadOwned fetches product id and checks the principal may mutate it. A
// missing product is reported before ownership.
func (s *ProductService) loadOwned(ctx context.Context, id string) (*domain.Product, domain.Principal, error) {
	principal, ok := security.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.Principal{}, domain.ErrNoIdentity
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !isNotFound(err) {
			s.log.Error().Err(err).Str("product_id", id).Msg("failed to load product")
		}
		return nil, principal, err
	}
	if err := s.policy.AuthorizeOwner(&principal, product.OwnerID).Err(); err != nil {
		return nil, principal, err
	}
	return product, principal, nil
}

func checkPrice(price float64) error {
	if price <= 0 || price > maxPrice {
		return fmt.Errorf("%w: price must be greater than 0 and at most %.2f", domain.ErrInvalidInput, maxPrice)
	}
	return nil
}
