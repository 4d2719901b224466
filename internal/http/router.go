package http

import (
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hostkita/panelstore/internal/config"
)

// handleRe is the shape of a hosting account username: panel-safe, short,
// no separators that break derived emails.
var handleRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,31}$`)

// registerValidators adds the custom binding rules used by the DTOs.
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
			return handleRe.MatchString(fl.Field().String())
		})
	}
}

type Server struct {
	router  *gin.Engine
	handler *Handler
	cfg     *config.Config
}

func NewServer(cfg *config.Config, handler *Handler) *Server {
	gin.SetMode(cfg.Server.Mode)
	registerValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:  router,
		handler: handler,
		cfg:     cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// General storefront limit plus a stricter one on order creation,
	// which triggers a gateway call per request.
	storeLimiter := NewRateLimiter(60, time.Minute)
	orderLimiter := NewRateLimiter(10, time.Hour)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "panelstore",
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Storefront API - public
	api := s.router.Group("/api/v1")
	api.Use(RateLimitMiddleware(storeLimiter))
	{
		api.GET("/settings", s.handler.GetPublicSettings)
		api.GET("/pricing", s.handler.GetPricing)

		api.POST("/orders", RateLimitMiddleware(orderLimiter), s.handler.CreateOrder)
		api.GET("/orders/:id", s.handler.GetOrder)
		api.DELETE("/orders/:id", s.handler.CancelOrder)
	}

	// Admin API - JWT authenticated
	admin := s.router.Group("/api/admin")
	admin.Use(JWTAuthMiddleware(s.cfg.JWT.SecretKey))
	{
		admin.GET("/subscriptions", s.handler.ListSubscriptions)
		admin.POST("/subscriptions/renew", s.handler.RenewSubscription)
		admin.POST("/subscriptions/:serverID/suspend", s.handler.SuspendSubscription)
		admin.POST("/subscriptions/:serverID/unsuspend", s.handler.UnsuspendSubscription)
		admin.DELETE("/subscriptions/:serverID", s.handler.DeleteSubscription)

		admin.GET("/settings", s.handler.GetSettings)
		admin.PUT("/settings", s.handler.UpdateSettings)
	}

	// Internal API - operator tooling behind the internal secret
	internal := s.router.Group("/api/internal")
	internal.Use(InternalAuthMiddleware(s.cfg.InternalSecret))
	{
		internal.POST("/orders/:id/force", s.handler.ForceFulfilOrder)
	}
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
