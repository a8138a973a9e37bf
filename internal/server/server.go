package server

import (
	"log/slog"
	"net/http"
	"storefront-payments/internal/database"
	"storefront-payments/internal/service"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Server struct {
	router   *gin.Engine
	webhooks service.WebhookService
	db       database.Service
	log      *slog.Logger
}

func New(webhooks service.WebhookService, db database.Service, allowedOrigins []string, logger *slog.Logger) *Server {
	router := gin.New()

	s := &Server{
		router:   router,
		webhooks: webhooks,
		db:       db,
		log:      logger,
	}

	router.Use(s.requestLogger())
	router.Use(gin.CustomRecovery(s.recover))
	router.Use(cors.New(corsConfig(allowedOrigins)))

	router.GET("/health", s.handleHealth)

	hooks := router.Group("/webhooks")
	{
		hooks.POST("/paymongo", s.handlePayMongoWebhook)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Paymongo-Signature", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)

		start := time.Now()
		c.Next()

		s.log.InfoContext(c.Request.Context(), "request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

func (s *Server) recover(c *gin.Context, err any) {
	s.log.ErrorContext(c.Request.Context(), "panic serving request", "panic", err, "request_id", c.GetString("request_id"))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.db.Health(c.Request.Context())
	if stats["status"] != "up" {
		c.JSON(http.StatusServiceUnavailable, stats)
		return
	}
	c.JSON(http.StatusOK, stats)
}
