package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/educationerp/erp-auth/docs"
	"github.com/educationerp/erp-auth/internal/api/handler"
	"github.com/educationerp/erp-auth/internal/api/middleware"
	"github.com/educationerp/erp-auth/internal/core/domain"
	"github.com/educationerp/erp-auth/internal/core/policy"
	"github.com/educationerp/erp-auth/internal/core/ports"
	"github.com/educationerp/erp-auth/internal/ids"
)

// RateLimit throttles the credential endpoints per client IP. A zero RPS
// disables it.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Deps is everything the router wires into handlers and middleware.
type Deps struct {
	Log            zerolog.Logger
	Policy         *policy.Policy
	Tokens         ports.TokenValidator
	Revocations    ports.RevocationList // optional
	AuthService    ports.AuthService
	AccountService ports.AccountService
	HealthChecks   map[string]handler.Check
	TenantType     domain.TenantType
	DefaultTenant  string
	RateLimit      RateLimit
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Policy == nil {
		d.Policy = policy.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: ids.New}))
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.Authenticate(d.Policy, d.Tokens, d.Revocations, d.Log))
	e.Use(middleware.Authorize(d.Policy, d.Log))
	e.Use(middleware.Tenant(d.DefaultTenant))

	// --- Auth routes (public, throttled) ---
	authHandler := handler.NewAuthHandler(d.AuthService)
	auth := e.Group("/api/auth")
	if d.RateLimit.RPS > 0 {
		auth.Use(rateLimiter(d.RateLimit))
	}
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/validate", authHandler.Validate)
	auth.POST("/validate", authHandler.Validate)

	// --- Account administration ---
	accountHandler := handler.NewAccountHandler(d.AccountService)
	users := e.Group("/api/users")
	users.POST("", accountHandler.Create)
	users.GET("", accountHandler.List)
	users.GET("/me", accountHandler.Me)
	users.PUT("/me/password", accountHandler.ChangePassword)
	users.GET("/:username", accountHandler.Get)
	users.DELETE("/:username", accountHandler.Delete)
	users.POST("/:username/lock", accountHandler.Lock)
	users.POST("/:username/unlock", accountHandler.Unlock)
	users.PUT("/:username/password", accountHandler.ResetPassword)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.HealthChecks, d.TenantType, d.Log)

	e.GET("/health/live", healthHandler.Liveness)       // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func rateLimiter(cfg RateLimit) echo.MiddlewareFunc {
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RPS),
		Burst:     cfg.Burst,
		ExpiresIn: 3 * time.Minute,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}
