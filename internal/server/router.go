// Package server wires the gin router and runs the HTTP server with
// graceful shutdown.
package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	healthhandler "coursedesk/backend/internal/health/handler"
	identityhandler "coursedesk/backend/internal/identity/handler"
	"coursedesk/backend/internal/security"
	"coursedesk/backend/internal/server/middleware"
)

// ServiceName labels traces and request spans.
const ServiceName = "coursedesk-auth"

// NewRouter wires gin routes and middleware.
func NewRouter(logger *zap.Logger, authHandler *identityhandler.AuthHandler, healthHandler *healthhandler.Handler, tokens *security.TokenProvider) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(otelgin.Middleware(ServiceName))

	r.GET("/healthz", healthHandler.Healthz)

	auth := r.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)

		google := auth.Group("/google")
		{
			google.GET("/authorize", authHandler.GoogleAuthorize)
			google.GET("/callback", authHandler.GoogleCallback)
			google.POST("/callback", authHandler.GoogleCallback)
		}

		protected := auth.Group("", middleware.RequireAuth(tokens))
		{
			protected.GET("/sessions", authHandler.Sessions)
			protected.DELETE("/sessions", authHandler.RevokeSessions)
		}
	}

	return r
}
