package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/storefront/identity-api/internal/core/domain"
)

// DefaultBcryptCost is used when no cost is configured.
const DefaultBcryptCost = 12

// MaxPasswordBytes is the bcrypt input limit. It counts bytes, not runes.
const MaxPasswordBytes = 72

var (
	// ErrPasswordMismatch means the hash is well formed but does not match.
	ErrPasswordMismatch = errors.New("password does not match hash")
	// ErrMalformedHash means the stored value is not a bcrypt hash.
	ErrMalformedHash = errors.New("stored password hash is malformed")
)

// BcryptHasher hashes and verifies passwords with bcrypt. It holds no
// mutable state and is safe for concurrent use.
type BcryptHasher struct {
	cost int
	// decoy is verified against when the account does not exist so that
	// unknown emails cost the same as wrong passwords.
	decoy []byte
}

// NewBcryptHasher returns a hasher using cost, or DefaultBcryptCost when
// cost is zero.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	decoy, err := bcrypt.GenerateFromPassword([]byte("decoy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt decoy hash: %w", err)
	}
	return &BcryptHasher{cost: cost, decoy: decoy}, nil
}

func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash returns the salted bcrypt hash of plaintext.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", domain.ErrEmptyPassword
	}
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, MaxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Check compares plaintext with hash in constant time. It returns nil on a
// match, ErrPasswordMismatch on a mismatch and ErrMalformedHash when hash
// cannot be parsed.
func (h *BcryptHasher) Check(plaintext, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}

// Verify reports whether plaintext matches hash.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	return h.Check(plaintext, hash) == nil
}

// Burn runs a comparison against a fixed decoy hash and discards the result.
func (h *BcryptHasher) Burn(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.decoy, []byte(plaintext))
}
