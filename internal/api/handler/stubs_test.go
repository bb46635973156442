package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/storefront/identity-api/internal/core/domain"
	"github.com/storefront/identity-api/internal/core/ports"
	"github.com/storefront/identity-api/internal/core/security"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, name, email, password string) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	currentFn  func(ctx context.Context) (*domain.UserSummary, error)
}

func (s *stubAuthService) Register(ctx context.Context, name, email, password string) (*ports.AuthResult, error) {
	return s.registerFn(ctx, name, email, password)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Current(ctx context.Context) (*domain.UserSummary, error) {
	return s.currentFn(ctx)
}

type stubUserService struct {
	listFn   func(ctx context.Context) ([]domain.UserSummary, error)
	getFn    func(ctx context.Context, id string) (*domain.UserSummary, error)
	updateFn func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.UserSummary, error)
	deleteFn func(ctx context.Context, id string) (*domain.UserSummary, error)
}

func (s *stubUserService) List(ctx context.Context) ([]domain.UserSummary, error) {
	return s.listFn(ctx)
}

func (s *stubUserService) Get(ctx context.Context, id string) (*domain.UserSummary, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) Update(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.UserSummary, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubUserService) Delete(ctx context.Context, id string) (*domain.UserSummary, error) {
	return s.deleteFn(ctx, id)
}

type stubProductService struct {
	listFn        func(ctx context.Context) ([]*domain.Product, error)
	getFn         func(ctx context.Context, id string) (*domain.Product, error)
	listByOwnerFn func(ctx context.Context, ownerID string) ([]*domain.Product, error)
	listMineFn    func(ctx context.Context) ([]*domain.Product, error)
	createFn      func(ctx context.Context, in ports.CreateProductInput) (*domain.Product, error)
	updateFn      func(ctx context.Context, id string, in ports.UpdateProductInput) (*domain.Product, error)
	deleteFn      func(ctx context.Context, id string) error
}

func (s *stubProductService) List(ctx context.Context) ([]*domain.Product, error) {
	return s.listFn(ctx)
}

func (s *stubProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.getFn(ctx, id)
}

func (s *stubProductService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Product, error) {
	return s.listByOwnerFn(ctx, ownerID)
}

func (s *stubProductService) ListMine(ctx context.Context) ([]*domain.Product, error) {
	return s.listMineFn(ctx)
}

func (s *stubProductService) Create(ctx context.Context, in ports.CreateProductInput) (*domain.Product, error) {
	return s.createFn(ctx, in)
}

func (s *stubProductService) Update(ctx context.Context, id string, in ports.UpdateProductInput) (*domain.Product, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubProductService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

// newContext builds an echo context for method/target with an optional JSON
// body and principal.
func newContext(method, target, body string, p *domain.Principal) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if p != nil {
		req = req.WithContext(security.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}
