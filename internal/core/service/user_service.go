package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/identity-api/internal/core/domain"
	"github.com/storefront/identity-api/internal/core/ports"
	"github.com/storefront/identity-api/internal/core/security"
)

// UserService manages accounts on behalf of the request principal.
type UserService struct {
	users    ports.UserRepository
	products ports.ProductRepository
	hasher   PasswordHasher
	policy   *security.Policy
	log      zerolog.Logger
}

func NewUserService(
	users ports.UserRepository,
	products ports.ProductRepository,
	hasher PasswordHasher,
	policy *security.Policy,
	log zerolog.Logger,
) *UserService {
	return &UserService{users: users, products: products, hasher: hasher, policy: policy, log: log}
}

func (s *UserService) List(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]domain.UserSummary, len(users))
	for i, u := range users {
		out[i] = u.Summary()
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.UserSummary, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := user.Summary()
	return &summary, nil
}

// Update applies a partial profile update to account id. The principal must
// own the account or be an admin; only admins may change roles.
func (s *UserService) Update(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.UserSummary, error) {
	principal, err := s.authorize(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Role != nil {
		if !principal.IsAdmin() {
			return nil, domain.ErrInsufficientRole
		}
		if !in.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, *in.Role)
		}
		user.Role = *in.Role
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
		}
		user.Name = name
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email must not be empty", domain.ErrInvalidInput)
		}
		if security.NormalizeEmail(email) != security.NormalizeEmail(user.Email) {
			exists, err := s.users.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("update user: %w", err)
			}
			if exists {
				return nil, domain.ErrDuplicateEmail
			}
		}
		user.Email = email
	}

	if in.Password != nil && *in.Password != "" {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				return nil, err
			}
			return nil, fmt.Errorf("update user: %w", err)
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = time.Now().UTC()
	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", updated.ID).Str("actor_id", principal.ID).Msg("user updated")
	summary := updated.Summary()
	return &summary, nil
}

// Delete removes account id together with the products it owns.
func (s *UserService) Delete(ctx context.Context, id string) (*domain.UserSummary, error) {
	principal, err := s.authorize(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	removed, err := s.products.DeleteByOwner(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete user products: %w", err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", id).
		Str("actor_id", principal.ID).
		Int64("products_removed", removed).
		Msg("user deleted")
	summary := user.Summary()
	return &summary, nil
}

// authorize treats an account as owned by itself.
func (s *UserService) authorize(ctx context.Context, id string) (domain.Principal, error) {
	principal, ok := security.PrincipalFrom(ctx)
	if !ok {
		return domain.Principal{}, domain.ErrNoIdentity
	}
	if err := s.policy.AuthorizeOwner(&principal, id).Err(); err != nil {
		return domain.Principal{}, err
	}
	return principal, nil
}

// isNotFound reports lookup misses for either collection.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrProductNotFound)
}
