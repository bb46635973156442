package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/storefront/identity-api/internal/core/domain"
	"github.com/storefront/identity-api/internal/core/security"
)

type stubUsers struct {
	findByEmailF func(ctx context.Context, email string) (*domain.User, error)
}

func (s *stubUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findByEmailF(ctx, email)
}

type recordingActivity struct {
	mu     sync.Mutex
	events []domain.Activity
}

func (r *recordingActivity) Record(a domain.Activity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, a)
}

var alice = &domain.User{ID: "u1", Name: "Alice", Email: "alice@x.com", Role: domain.RoleUser}

func usersWith(known ...*domain.User) *stubUsers {
	return &stubUsers{findByEmailF: func(_ context.Context, email string) (*domain.User, error) {
		for _, u := range known {
			if strings.EqualFold(u.Email, email) {
				return u, nil
			}
		}
		return nil, domain.ErrUserNotFound
	}}
}

func newCodec(t *testing.T, now func() time.Time) *security.TokenCodec {
	t.Helper()
	codec, err := security.NewTokenCodec(security.TokenConfig{Secret: "secret", TTL: time.Hour, Now: now})
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return codec
}

func issue(t *testing.T, codec *security.TokenCodec, u *domain.User) string {
	t.Helper()
	token, _, err := codec.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

// runAuthenticate executes Authenticate and returns the state seen by next.
func runAuthenticate(t *testing.T, mw echo.MiddlewareFunc, header string) security.AuthState {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		state  security.AuthState
		called bool
	)
	handler := mw(func(c echo.Context) error {
		called = true
		state = security.AuthStateFrom(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("Authenticate must not fail the request: %v", err)
	}
	if !called {
		t.Fatal("next not called")
	}
	return state
}

func TestAuthenticate_ValidToken(t *testing.T) {
	codec := newCodec(t, nil)
	mw := Authenticate(codec, usersWith(alice), nil, zerolog.Nop())

	state := runAuthenticate(t, mw, "Bearer "+issue(t, codec, alice))
	if !state.Authenticated() {
		t.Fatalf("expected principal, got failure %v", state.Failure)
	}
	if state.Principal.ID != "u1" || state.Principal.Role != domain.RoleUser {
		t.Fatalf("principal = %+v", state.Principal)
	}
}

func TestAuthenticate_SchemeCaseInsensitive(t *testing.T) {
	codec := newCodec(t, nil)
	mw := Authenticate(codec, usersWith(alice), nil, zerolog.Nop())

	if state := runAuthenticate(t, mw, "bEaReR "+issue(t, codec, alice)); !state.Authenticated() {
		t.Fatalf("expected principal, got failure %v", state.Failure)
	}
}

func TestAuthenticate_NoTokenIsAnonymous(t *testing.T) {
	codec := newCodec(t, nil)
	mw := Authenticate(codec, usersWith(alice), nil, zerolog.Nop())

	for _, header := range []string{"", "Basic dXNlcjpwYXNz", "Bearer", "Bearer   ", "Token abc"} {
		state := runAuthenticate(t, mw, header)
		if state.Authenticated() || state.Failure != nil {
			t.Errorf("header %q: expected clean anonymous state, got %+v", header, state)
		}
	}
}

func TestAuthenticate_ExpiredTokenDeferred(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	token := issue(t, newCodec(t, func() time.Time { return issuedAt }), alice)
	codec := newCodec(t, func() time.Time { return issuedAt.Add(2 * time.Hour) })

	activity := &recordingActivity{}
	mw := Authenticate(codec, usersWith(alice), activity, zerolog.Nop())

	state := runAuthenticate(t, mw, "Bearer "+token)
	if state.Authenticated() {
		t.Fatal("expired token must not authenticate")
	}
	if !errors.Is(state.Failure, domain.ErrTokenExpired) {
		t.Fatalf("failure = %v, want ErrTokenExpired", state.Failure)
	}
	if len(activity.events) != 1 || activity.events[0].Reason != "expired" {
		t.Fatalf("activity = %+v", activity.events)
	}
}

func TestAuthenticate_GarbageTokenDeferred(t *testing.T) {
	mw := Authenticate(newCodec(t, nil), usersWith(alice), nil, zerolog.Nop())

	state := runAuthenticate(t, mw, "Bearer not.a.jwt")
	if !errors.Is(state.Failure, domain.ErrTokenMalformed) {
		t.Fatalf("failure = %v, want ErrTokenMalformed", state.Failure)
	}
}

func TestAuthenticate_DeletedAccount(t *testing.T) {
	codec := newCodec(t, nil)
	mw := Authenticate(codec, usersWith(), nil, zerolog.Nop())

	state := runAuthenticate(t, mw, "Bearer "+issue(t, codec, alice))
	if !errors.Is(state.Failure, domain.ErrIdentityGone) {
		t.Fatalf("failure = %v, want ErrIdentityGone", state.Failure)
	}
}

func TestAuthenticate_RoleComesFromStoredAccount(t *testing.T) {
	codec := newCodec(t, nil)
	token := issue(t, codec, alice)
	promoted := *alice
	promoted.Role = domain.RoleAdmin
	mw := Authenticate(codec, usersWith(&promoted), nil, zerolog.Nop())

	state := runAuthenticate(t, mw, "Bearer "+token)
	if !state.Authenticated() || state.Principal.Role != domain.RoleAdmin {
		t.Fatalf("state = %+v", state)
	}
}

func TestAuthenticate_EmailChangedAfterIssue(t *testing.T) {
	codec := newCodec(t, nil)
	token := issue(t, codec, alice)
	moved := *alice
	moved.Email = "new@x.com"
	mw := Authenticate(codec, usersWith(&moved), nil, zerolog.Nop())

	state := runAuthenticate(t, mw, "Bearer "+token)
	if state.Authenticated() {
		t.Fatalf("token for %s authenticated as %+v", alice.Email, state.Principal)
	}
	if !errors.Is(state.Failure, domain.ErrIdentityGone) {
		t.Fatalf("failure = %v, want ErrIdentityGone", state.Failure)
	}
}

func TestAuthenticate_SubjectMatchedIgnoringCase(t *testing.T) {
	codec := newCodec(t, nil)
	token := issue(t, codec, alice)
	recased := *alice
	recased.Email = "Alice@X.com"
	mw := Authenticate(codec, usersWith(&recased), nil, zerolog.Nop())

	if state := runAuthenticate(t, mw, "Bearer "+token); !state.Authenticated() {
		t.Fatalf("expected principal, got failure %v", state.Failure)
	}
}

func TestAuthenticate_SubjectReRegistered(t *testing.T) {
	codec := newCodec(t, nil)
	token := issue(t, codec, alice)
	successor := *alice
	successor.ID = "u9"
	mw := Authenticate(codec, usersWith(&successor), nil, zerolog.Nop())

	state := runAuthenticate(t, mw, "Bearer "+token)
	if !errors.Is(state.Failure, domain.ErrIdentityGone) {
		t.Fatalf("failure = %v, want ErrIdentityGone", state.Failure)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"BEARER  abc ": "abc",
		"Bearer":       "",
		"Basic abc":    "",
		"":             "",
	}
	for header, want := range cases {
		if got := bearerToken(header); got != want {
			t.Errorf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
