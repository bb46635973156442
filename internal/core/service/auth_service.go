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
	"github.com/storefront/identity-api/internal/pkg/metrics"
)

// PasswordHasher abstracts the one-way password function (bcrypt).
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Check(plaintext, hash string) error
	// Burn spends the same work as Check against a decoy hash.
	Burn(plaintext string)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(user *domain.User) (string, *security.Claims, error)
}

// AuthService implements login, registration and current-account lookup.
type AuthService struct {
	repo     ports.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	guard    ports.RegistrationGuard
	activity ports.ActivityRecorder
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuthService wires the authenticator. guard and activity may be nil.
func NewAuthService(
	repo ports.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	guard ports.RegistrationGuard,
	activity ports.ActivityRecorder,
	log zerolog.Logger,
) *AuthService {
	if activity == nil {
		activity = discardActivity{}
	}
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		guard:    guard,
		activity: activity,
		log:      log,
		now:      time.Now,
	}
}

// Login verifies credentials and issues a token. An unknown email and a wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Burn(password)
			s.loginFailed(email, "", "unknown_email")
			return nil, domain.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	start := time.Now()
	err = s.hasher.Check(password, user.PasswordHash)
	metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, security.ErrMalformedHash) {
			s.log.Warn().Str("user_id", user.ID).Msg("stored password hash is malformed")
		}
		s.loginFailed(email, user.ID, "bad_password")
		return nil, domain.ErrInvalidCredentials
	}

	result, err := s.issue(user)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.record(domain.ActivityLoginSucceeded, user.Email, user.ID, "")
	s.log.Info().Str("user_id", user.ID).Msg("login succeeded")
	return result, nil
}

// Register creates a USER account and signs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*ports.AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		metrics.RegistrationsTotal.WithLabelValues("invalid_input").Inc()
		return nil, domain.ErrInvalidInput
	}

	if s.guard != nil {
		lease, acquired, err := s.guard.Acquire(ctx, email)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Msg("registration guard unavailable, relying on unique index")
		case !acquired:
			metrics.RegistrationsTotal.WithLabelValues("duplicate_email").Inc()
			return nil, domain.ErrDuplicateEmail
		default:
			defer func() {
				if err := s.guard.Release(context.WithoutCancel(ctx), email, lease); err != nil {
					s.log.Warn().Err(err).Msg("failed to release registration guard")
				}
			}()
		}
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		metrics.RegistrationsTotal.WithLabelValues("duplicate_email").Inc()
		return nil, domain.ErrDuplicateEmail
	}

	created, err := s.createUser(ctx, name, email, password, domain.RoleUser)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			metrics.RegistrationsTotal.WithLabelValues("duplicate_email").Inc()
			return nil, err
		case errors.Is(err, domain.ErrInvalidInput):
			metrics.RegistrationsTotal.WithLabelValues("invalid_input").Inc()
			return nil, err
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}

	result, err := s.issue(created)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	s.record(domain.ActivityRegistered, created.Email, created.ID, "")
	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	return result, nil
}

// Current returns the account of the request principal.
func (s *AuthService) Current(ctx context.Context) (*domain.UserSummary, error) {
	principal, ok := security.PrincipalFrom(ctx)
	if !ok {
		return nil, domain.ErrNoIdentity
	}
	user, err := s.repo.FindByID(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrIdentityGone
		}
		return nil, err
	}
	summary := user.Summary()
	return &summary, nil
}

// EnsureAdmin creates an ADMIN account for email unless one already exists.
// It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	if exists {
		return false, nil
	}
	created, err := s.createUser(ctx, name, email, password, domain.RoleAdmin)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return false, nil
		}
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	s.log.Info().Str("user_id", created.ID).Msg("admin account created")
	return true, nil
}

func (s *AuthService) createUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	start := time.Now()
	hash, err := s.hasher.Hash(password)
	metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	return s.repo.Create(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (s *AuthService) issue(user *domain.User) (*ports.AuthResult, error) {
	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user.Summary(),
	}, nil
}

func (s *AuthService) loginFailed(email, userID, reason string) {
	metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
	s.record(domain.ActivityLoginFailed, email, userID, reason)
	s.log.Info().Str("reason", reason).Msg("login rejected")
}

func (s *AuthService) record(kind domain.ActivityKind, email, userID, reason string) {
	s.activity.Record(domain.Activity{
		Kind:       kind,
		Email:      email,
		UserID:     userID,
		Reason:     reason,
		OccurredAt: s.now().UTC(),
	})
}

type discardActivity struct{}

func (discardActivity) Record(domain.Activity) {}
