package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/storefront/identity-api/docs"
	"github.com/storefront/identity-api/internal/api/handler"
	"github.com/storefront/identity-api/internal/api/middleware"
	"github.com/storefront/identity-api/internal/core/ports"
	"github.com/storefront/identity-api/internal/core/security"
)

// Deps carries everything the router wires into handlers and middleware.
type Deps struct {
	Auth     ports.AuthService
	Users    ports.UserService
	Products ports.ProductService

	Tokens   middleware.TokenDecoder
	Accounts middleware.UserLookup
	Activity ports.ActivityRecorder
	Policy   *security.Policy

	HealthChecks map[string]handler.Check
	CORSOrigins  []string

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		AllowCredentials: true,
		MaxAge:           int((time.Hour).Seconds()),
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "identity",
		Subsystem:  "http",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.Authenticate(d.Tokens, d.Accounts, d.Activity, d.Log))
	e.Use(middleware.Authorize(d.Policy, d.Log))

	// --- Auth ---
	authHandler := handler.NewAuthHandler(d.Auth)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/auth/me", authHandler.Me)

	// --- Users ---
	userHandler := handler.NewUserHandler(d.Users)
	e.GET("/users", userHandler.List)
	e.PATCH("/users", userHandler.UpdateSelf)
	e.DELETE("/users", userHandler.DeleteSelf)
	e.GET("/users/:id", userHandler.Get)
	e.PATCH("/users/:id", userHandler.Update)
	e.DELETE("/users/:id", userHandler.Delete)

	// --- Products ---
	productHandler := handler.NewProductHandler(d.Products)
	e.GET("/products", productHandler.List)
	e.POST("/products", productHandler.Create)
	e.GET("/products/me", productHandler.ListMine)
	e.GET("/products/user/:userId", productHandler.ListByOwner)
	e.GET("/products/:id", productHandler.Get)
	e.PATCH("/products/:id", productHandler.Update)
	e.DELETE("/products/:id", productHandler.Delete)

	// --- Operations (no auth required) ---
	healthHandler := handler.NewHealthHandler(d.HealthChecks)
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger emits one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
