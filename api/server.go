// Package api exposes the operator console over HTTP: wallet listing and the
// send-funds wizard, one server-side session per open dialog.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/internal/infrastructure/ratelimit"
	"github.com/Aidin1998/finalex-console/pkg/logger"
	"github.com/Aidin1998/finalex-console/pkg/models"
)

// WalletStore is the read side of the wallet repository.
type WalletStore interface {
	GetWallet(ctx context.Context, walletID string) (*models.Wallet, error)
	ListWallets(ctx context.Context, query models.PageQuery) (*models.Page[models.Wallet], error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Options configure the server.
type Options struct {
	ServiceName    string
	AllowedOrigins []string
	// CodeLimiter bounds second-factor attempts per session; nil disables it.
	CodeLimiter ratelimit.Limiter
}

// Server represents the API server
type Server struct {
	router    *gin.Engine
	logger    *zap.Logger
	wallets   WalletStore
	sessions  *SessionStore
	health    HealthChecker
	validator *validator.Validate
	codeLimit gin.HandlerFunc
}

// NewServer creates the API server.
func NewServer(log *zap.Logger, wallets WalletStore, sessions *SessionStore, health HealthChecker, opts Options) *Server {
	log = logger.OrNop(log)
	if opts.ServiceName == "" {
		opts.ServiceName = "finalex-console"
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(log, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(log, true))
	router.Use(otelgin.Middleware(opts.ServiceName))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(opts.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		router:    router,
		logger:    log,
		wallets:   wallets,
		sessions:  sessions,
		health:    health,
		validator: validator.New(),
		codeLimit: func(c *gin.Context) { c.Next() },
	}
	if opts.CodeLimiter != nil {
		s.codeLimit = ratelimit.Middleware(opts.CodeLimiter, func(c *gin.Context) string {
			return "code:" + c.Param("id")
		}, log)
	}
	s.registerRoutes()
	return s
}

// Router returns the internal Gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		wallets := v1.Group("/wallets")
		{
			wallets.GET("", s.listWallets)
			wallets.GET("/:id", s.getWallet)
		}

		sessions := v1.Group("/withdrawals/sessions")
		{
			sessions.POST("", s.openSession)
			sessions.GET("/:id", s.getSession)
			sessions.PUT("/:id/currency", s.selectCurrency)
			sessions.PUT("/:id/amount", s.editAmount)
			sessions.GET("/:id/max", s.maxAmount)
			sessions.POST("/:id/submit", s.submitDraft)
			sessions.POST("/:id/back", s.back)
			sessions.POST("/:id/confirm", s.confirm)
			sessions.POST("/:id/code", s.codeLimit, s.confirmCode)
			sessions.DELETE("/:id", s.closeSession)
		}
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if s.health != nil {
		if err := s.health.HealthCheck(c.Request.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status":    status,
		"sessions":  s.sessions.Len(),
		"timestamp": time.Now().UTC(),
	})
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
