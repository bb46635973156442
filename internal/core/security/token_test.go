package security

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storefront/identity-api/internal/core/domain"
)

var issuedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestCodec(t *testing.T, clock *fakeClock) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(TokenConfig{Secret: "test-secret", TTL: time.Hour, Now: clock.Now})
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return codec
}

func testUser() *domain.User {
	return &domain.User{ID: "u1", Name: "Alice", Email: "a@x.com", Role: domain.RoleUser}
}

func TestNewTokenCodec_MissingSecret(t *testing.T) {
	for _, secret := range []string{"", "   "} {
		if _, err := NewTokenCodec(TokenConfig{Secret: secret}); !errors.Is(err, ErrMissingSecret) {
			t.Fatalf("secret %q: expected ErrMissingSecret, got %v", secret, err)
		}
	}
}

func TestNewTokenCodec_DefaultTTL(t *testing.T) {
	codec, err := NewTokenCodec(TokenConfig{Secret: "s"})
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	if codec.TTL() != DefaultTokenTTL {
		t.Fatalf("expected default ttl, got %s", codec.TTL())
	}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	clock := &fakeClock{now: issuedAt}
	codec := newTestCodec(t, clock)

	token, issued, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	if issued.ID == "" {
		t.Fatalf("expected jti to be set")
	}

	claims, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "a@x.com" || claims.UserID != "u1" || claims.Role != domain.RoleUser || claims.Name != "Alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.IssuedAt.Time.Equal(issuedAt) {
		t.Fatalf("unexpected iat: %v", claims.IssuedAt)
	}
	if !claims.ExpiresAt.Time.Equal(issuedAt.Add(time.Hour)) {
		t.Fatalf("unexpected exp: %v", claims.ExpiresAt)
	}
}

func TestTokenCodec_ExpiryBoundary(t *testing.T) {
	clock := &fakeClock{now: issuedAt}
	codec := newTestCodec(t, clock)

	token, _, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.now = issuedAt.Add(time.Hour - time.Second)
	if _, err := codec.Decode(token); err != nil {
		t.Fatalf("expected token valid one second before expiry, got %v", err)
	}

	clock.now = issuedAt.Add(time.Hour)
	if _, err := codec.Decode(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at exp, got %v", err)
	}

	clock.now = issuedAt.Add(48 * time.Hour)
	if _, err := codec.Decode(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired after exp, got %v", err)
	}
}

func TestTokenCodec_SignatureBitFlip(t *testing.T) {
	clock := &fakeClock{now: issuedAt}
	codec := newTestCodec(t, clock)

	token, _, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(token, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}

	for i := range sig {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), sig...)
			tampered[i] ^= 1 << bit
			forged := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(tampered)

			if _, err := codec.Decode(forged); !errors.Is(err, domain.ErrTokenSignatureInvalid) {
				t.Fatalf("byte %d bit %d: expected ErrTokenSignatureInvalid, got %v", i, bit, err)
			}
		}
	}
}

func TestTokenCodec_TamperedPayloadOfExpiredToken(t *testing.T) {
	clock := &fakeClock{now: issuedAt}
	codec := newTestCodec(t, clock)

	token, _, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(token, ".")
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"admin@x.com","role":"ADMIN","exp":1}`))

	clock.now = issuedAt.Add(2 * time.Hour)
	if _, err := codec.Decode(parts[0] + "." + payload + "." + parts[2]); !errors.Is(err, domain.ErrTokenSignatureInvalid) {
		t.Fatalf("signature must be checked before expiry, got %v", err)
	}
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	clock := &fakeClock{now: issuedAt}
	other, err := NewTokenCodec(TokenConfig{Secret: "other-secret", Now: clock.Now})
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	token, _, err := other.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := newTestCodec(t, clock).Decode(token); !errors.Is(err, domain.ErrTokenSignatureInvalid) {
		t.Fatalf("expected ErrTokenSignatureInvalid, got %v", err)
	}
}

func TestTokenCodec_UnsupportedAlgorithms(t *testing.T) {
	clock := &fakeClock{now: issuedAt}
	codec := newTestCodec(t, clock)
	claims := jwt.MapClaims{"sub": "a@x.com", "exp": issuedAt.Add(time.Hour).Unix()}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"XX999","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"a@x.com"}`))
	unknown := header + "." + payload + ".c2ln"

	for name, token := range map[string]string{"none": none, "HS512": hs512, "unknown": unknown} {
		if _, err := codec.Decode(token); !errors.Is(err, domain.ErrTokenUnsupported) {
			t.Fatalf("%s: expected ErrTokenUnsupported, got %v", name, err)
		}
	}
}

func TestTokenCodec_Malformed(t *testing.T) {
	clock := &fakeClock{now: issuedAt}
	codec := newTestCodec(t, clock)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "a@x.com"}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": issuedAt.Add(time.Hour).Unix()}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := map[string]string{
		"garbage":    "not-a-token",
		"bad base64": "a.b.c",
		"two parts":  "abc.def",
		"no exp":     noExp,
		"no subject": noSub,
	}
	for name, token := range cases {
		_, err := codec.Decode(token)
		if !errors.Is(err, domain.ErrTokenMalformed) {
			t.Fatalf("%s: expected ErrTokenMalformed, got %v", name, err)
		}
		if !domain.IsTokenFailure(err) {
			t.Fatalf("%s: expected token failure classification", name)
		}
	}
}

func TestTokenCodec_EmptyTokenIsNotAFailure(t *testing.T) {
	codec := newTestCodec(t, &fakeClock{now: issuedAt})

	_, err := codec.Decode("")
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if domain.IsTokenFailure(err) {
		t.Fatalf("empty token must not be classified as a token failure")
	}
}
