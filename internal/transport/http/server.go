// Package http exposes the registration and moderation JSON API.
package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avoronkov/vcadmin/internal/audit"
	"github.com/avoronkov/vcadmin/internal/auth"
	"github.com/avoronkov/vcadmin/internal/config"
	"github.com/avoronkov/vcadmin/internal/events"
)

// NewServer builds the HTTP server with all routes wired.
func NewServer(reg Registrar, authService *auth.Service, store *audit.Store, bus *events.Bus, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	h := NewHandlers(reg, authService, store, bus, logger)

	router.GET("/health", healthHandler)

	api := router.Group("/api")
	api.POST("/register", rateLimitMiddleware(newRateLimiter(cfg.HTTP.RegisterRateLimit)), h.Register)

	admin := api.Group("/admin")
	admin.POST("/login", h.AdminLogin)

	authed := admin.Group("", AuthMiddleware(authService, logger))
	authed.GET("/pending", h.Pending)
	authed.POST("/pending/:key/accept", h.Accept)
	authed.DELETE("/pending/:key", h.Reject)
	authed.GET("/accounts", h.Accounts)
	authed.GET("/audit", h.Audit)
	authed.GET("/events", h.Events)

	return &stdhttp.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	_, _ = fmt.Fprint(c.Writer, "ok")
}
