package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spotlog/backend/internal/config"
	"github.com/spotlog/backend/internal/middleware"
	"github.com/spotlog/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(cfg.Server.AllowOrigins))

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", svc.metricsHandler.Metrics)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.POST("/logout", svc.authHandler.Logout)
		}

		// Protected routes
		protected := api.Group("/auth")
		protected.Use(middleware.AuthRequired(svc.codec, svc.transport.AccessCookieName()))
		{
			protected.GET("/session", svc.authHandler.Session)
			protected.GET("/me", svc.authHandler.GetCurrentUser)
			protected.GET("/sessions", svc.authHandler.ListSessions)
		}
	}
}
