// Package api contains the API routes for the HR Assistant API
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/nsvirk/hrassistapi/internal/api/handlers"
	"github.com/nsvirk/hrassistapi/internal/api/middleware"
	"github.com/nsvirk/hrassistapi/internal/service"
)

// Services are the dependencies of the HTTP routes
type Services struct {
	APIName       string
	APIVersion    string
	SecureCookies bool
	Auth          *service.AuthService
	Flows         *service.FlowService
	Metrics       *service.MetricsService
	Cron          *service.CronService
}

// SetupRoutes configures the routes for the API
func SetupRoutes(e *echo.Echo, s Services) {

	// Create a group for all API routes
	api := e.Group("/api")
	requireAuth := middleware.AuthMiddleware(s.Auth)

	// Index routes
	indexHandler := handlers.NewIndexHandler(s.APIName, s.APIVersion)
	api.GET("/", indexHandler.Index)
	api.GET("/health", indexHandler.Health)

	// Auth routes (logout protected)
	authHandler := handlers.NewAuthHandler(s.Auth, s.SecureCookies)
	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/remember-me/verify", authHandler.VerifyRememberMe)
	authGroup.GET("/remember-me", authHandler.RememberMeAvailable)
	authGroup.GET("/status", authHandler.Status)
	authGroup.POST("/logout", authHandler.Logout, requireAuth)

	// Chat routes (protected)
	chatHandler := handlers.NewChatHandler(s.Flows)
	chatGroup := api.Group("/chat")
	chatGroup.Use(requireAuth)
	chatGroup.POST("", chatHandler.Chat)
	chatGroup.POST("/clear", chatHandler.Clear)

	// Metrics routes (protected)
	metricsHandler := handlers.NewMetricsHandler(s.Metrics)
	metricsGroup := api.Group("/metrics")
	metricsGroup.Use(requireAuth)
	metricsGroup.GET("/summary", metricsHandler.Summary)

	// Admin routes (protected)
	cronHandler := handlers.NewCronHandler(s.Cron)
	adminGroup := api.Group("/admin")
	adminGroup.Use(requireAuth)
	adminGroup.POST("/sweep", cronHandler.Sweep)
}
