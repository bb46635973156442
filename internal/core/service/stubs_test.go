package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/storefront/identity-api/internal/core/domain"
	"github.com/storefront/identity-api/internal/core/security"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	seq     int
	findErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) findByEmailLocked(email string) *domain.User {
	key := security.NormalizeEmail(email)
	for _, u := range r.byID {
		if security.NormalizeEmail(u.Email) == key {
			return u
		}
	}
	return nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if u := r.findByEmailLocked(email); u != nil {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByEmailLocked(email) != nil, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Create mirrors the unique index on the folded email.
func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findByEmailLocked(user.Email) != nil {
		return nil, domain.ErrDuplicateEmail
	}
	r.seq++
	created := cloneUser(user)
	created.ID = fmt.Sprintf("u%d", r.seq)
	r.byID[created.ID] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.ID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	if other := r.findByEmailLocked(user.Email); other != nil && other.ID != user.ID {
		return nil, domain.ErrDuplicateEmail
	}
	r.byID[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type stubProductRepo struct {
	byID map[string]*domain.Product
	seq  int
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{byID: make(map[string]*domain.Product)}
}

func (r *stubProductRepo) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	r.seq++
	clone := *p
	clone.ID = fmt.Sprintf("p%d", r.seq)
	stored := clone
	r.byID[clone.ID] = &stored
	return &clone, nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubProductRepo) List(_ context.Context) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0, len(r.byID))
	for _, p := range r.byID {
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubProductRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Product, error) {
	all, _ := r.List(ctx)
	out := all[:0]
	for _, p := range all {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) Update(_ context.Context, p *domain.Product) (*domain.Product, error) {
	if _, ok := r.byID[p.ID]; !ok {
		return nil, domain.ErrProductNotFound
	}
	clone := *p
	r.byID[p.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubProductRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubProductRepo) DeleteByOwner(_ context.Context, ownerID string) (int64, error) {
	var n int64
	for id, p := range r.byID {
		if p.OwnerID == ownerID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

type stubGuard struct {
	mu       sync.Mutex
	held     map[string]string
	seq      int
	err      error
	released []string
}

func newStubGuard() *stubGuard {
	return &stubGuard{held: make(map[string]string)}
}

func (g *stubGuard) Acquire(_ context.Context, email string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", false, g.err
	}
	key := security.NormalizeEmail(email)
	if _, ok := g.held[key]; ok {
		return "", false, nil
	}
	g.seq++
	lease := fmt.Sprintf("lease-%d", g.seq)
	g.held[key] = lease
	return lease, true, nil
}

func (g *stubGuard) Release(_ context.Context, email, lease string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := security.NormalizeEmail(email)
	if g.held[key] == lease {
		delete(g.held, key)
		g.released = append(g.released, key)
	}
	return nil
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

func (r *recordingActivity) kinds() []domain.ActivityKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ActivityKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func testHasher(t *testing.T) *security.BcryptHasher {
	t.Helper()
	h, err := security.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcryptHasher: %v", err)
	}
	return h
}

func testCodec(t *testing.T) *security.TokenCodec {
	t.Helper()
	c, err := security.NewTokenCodec(security.TokenConfig{Secret: "secret", TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return c
}

func testPolicy(t *testing.T) *security.Policy {
	t.Helper()
	p, err := security.NewPolicy(nil)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return p
}

func asPrincipal(ctx context.Context, u *domain.User) context.Context {
	return security.WithPrincipal(ctx, domain.NewPrincipal(u))
}

var nopLog = zerolog.Nop()
