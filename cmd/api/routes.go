package main

import (
	"context"
	"net/http"

	"profile-api/internal/authz"
	"profile-api/internal/httpapi"
	"profile-api/internal/throttle"
	"profile-api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	handlers httpapi.Handlers
	limiter  throttle.Limiter
	ready    func(ctx context.Context) error
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if d.ready != nil {
			if err := d.ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")
	{
		login := []gin.HandlerFunc{d.handlers.Login}
		if d.limiter != nil {
			login = append([]gin.HandlerFunc{throttle.Middleware(d.limiter, "login")}, login...)
		}
		v1.POST("/auth/login", login...)

		v1.GET("/me", authz.RequireAuthenticated(), d.handlers.Me)
	}
}
