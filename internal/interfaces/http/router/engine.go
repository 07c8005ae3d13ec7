package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskprod/backend/internal/infrastructure/auth"
	"github.com/taskprod/backend/internal/infrastructure/config"
	"github.com/taskprod/backend/internal/infrastructure/logger"
	"github.com/taskprod/backend/internal/interfaces/http/handler"
	"github.com/taskprod/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted by NewEngine
type Handlers struct {
	Auth     *handler.AuthHandler
	Category *handler.CategoryHandler
	Product  *handler.ProductHandler
	Task     *handler.TaskHandler
	Health   *handler.HealthHandler
}

// EngineConfig carries what NewEngine needs besides the handlers
type EngineConfig struct {
	HTTP           config.HTTPConfig
	JWTService     *auth.JWTService
	TokenBlacklist auth.TokenBlacklist
	Logger         *zap.Logger
	Tracing        middleware.TracingConfig
}

// NewEngine assembles the gin engine: the global middleware chain, /health
// and the versioned API routes.
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}
	middleware.SetupValidator()

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	jwtCfg := middleware.DefaultJWTConfig(cfg.JWTService)
	jwtCfg.TokenBlacklist = cfg.TokenBlacklist
	jwtCfg.Logger = cfg.Logger

	engine.Use(
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.RequestID(),
		logger.GinMiddleware(cfg.Logger),
		logger.Recovery(cfg.Logger),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		middleware.SpanAttributes(),
	)
	if cfg.HTTP.RateLimitEnabled {
		window := cfg.HTTP.RateLimitWindow
		if window <= 0 {
			window = 24 * time.Hour
		}
		engine.Use(middleware.Throttle(
			middleware.NewRateLimiter(cfg.HTTP.UserRateLimit, window),
			middleware.NewRateLimiter(cfg.HTTP.AnonRateLimit, window),
		))
	}

	engine.GET("/health", h.Health.Health)

	NewRouter(engine).
		Register(authRoutes(h.Auth)).
		Register(ResourceRoutes("categories", "/categories", h.Category).
			GET("/:id/tree", h.Category.Tree)).
		Register(ResourceRoutes("products", "/products", h.Product)).
		Register(ResourceRoutes("tasks", "/tasks", h.Task)).
		Setup()

	return engine, nil
}

// authRoutes lists the session endpoints. Only logout needs an access
// token; the JWT middleware skips the rest.
func authRoutes(h *handler.AuthHandler) *DomainGroup {
	return NewDomainGroup("auth", "/auth").
		POST("/register", h.Register).
		POST("/login", h.Login).
		POST("/token/refresh", h.RefreshToken).
		POST("/logout", h.Logout).
		POST("/password-reset", h.RequestPasswordReset).
		POST("/password-reset-confirm", h.ConfirmPasswordReset)
}
