package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/storefront/identity-api/internal/core/domain"
)

// DefaultTokenTTL is the lifetime of an issued token when none is configured.
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrMissingSecret is returned by NewTokenCodec when no signing secret is
	// configured. It must abort startup.
	ErrMissingSecret = errors.New("token signing secret is not configured")
	// ErrNoToken is returned by Decode for an empty token. It is not a
	// failure class: callers treat it as an anonymous request.
	ErrNoToken = errors.New("no token presented")

	errUnexpectedAlg = errors.New("unexpected signing algorithm")
)

// TokenConfig configures a TokenCodec.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
	// Now overrides the clock; tests pin it.
	Now func() time.Time
}

// Claims is the payload carried by an access token. Subject is the email
// address of the account.
type Claims struct {
	UserID string      `json:"uid,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
	Name   string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec issues and decodes HS256 bearer tokens. It is immutable after
// construction and safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, ErrMissingSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(now),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &TokenCodec{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		issuer: cfg.Issuer,
		now:    now,
		parser: jwt.NewParser(opts...),
	}, nil
}

func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for user valid from now until now+TTL.
func (c *TokenCodec) Issue(user *domain.User) (string, *Claims, error) {
	now := c.now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Decode verifies the algorithm, then the signature, then expiry. A token is
// valid while now < exp. Failures wrap exactly one of domain.ErrTokenMalformed,
// domain.ErrTokenSignatureInvalid, domain.ErrTokenExpired or
// domain.ErrTokenUnsupported.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	claims := &Claims{}
	if _, err := c.parser.ParseWithClaims(token, claims, c.key); err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrTokenMalformed)
	}
	return claims, nil
}

func (c *TokenCodec) key(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("%w: %v", errUnexpectedAlg, t.Header["alg"])
	}
	return c.secret, nil
}

// classify maps jwt parser errors onto the token failure classes. Unknown
// algorithms surface as ErrTokenUnverifiable before the key is looked up.
func classify(err error) error {
	switch {
	case errors.Is(err, errUnexpectedAlg), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrTokenUnsupported, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", domain.ErrTokenSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
}
