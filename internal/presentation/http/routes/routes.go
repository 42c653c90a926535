// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/AtRiskMedia/glimpse-go/internal/application/container"
	"github.com/AtRiskMedia/glimpse-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/glimpse-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/glimpse-go/internal/presentation/templates"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Serve static monitor dashboard files from the /monitor URL.
	r.Static("/monitor", "web/monitor")

	// Initialize handlers
	renderer := templates.NewAffordanceRenderer()
	affordanceHandlers := handlers.NewAffordanceHandlers(container.AffordanceService, container.RoutingService, renderer, container.Logger, container.PerfTracker)
	reconcileHandlers := handlers.NewReconcileHandlers(container.ReconcileService, container.Logger, container.PerfTracker)
	sseHandlers := handlers.NewSSEHandlers(container.Broadcaster, container.Logger, container.PerfTracker)
	avatarHandlers := handlers.NewAvatarHandlers(container.AvatarService, container.Logger, container.PerfTracker)
	healthHandlers := handlers.NewHealthHandlers(container)
	monitorHandlers := handlers.NewMonitorHandlers(container)

	// Monitor API endpoints live under /api/monitor to avoid conflict with
	// static file serving.
	monitorAPI := r.Group("/api/monitor")
	{
		monitorAPI.GET("/auth", monitorHandlers.AuthCheck)
		monitorAPI.POST("/login", monitorHandlers.Login)

		// Monitor authenticated endpoints
		monitorAPI.Use(monitorHandlers.MonitorAuthMiddleware())
		{
			monitorAPI.GET("/stats", monitorHandlers.GetStats)
			monitorAPI.GET("/snapshot", monitorHandlers.GetSnapshot)
			monitorAPI.GET("/alerts", monitorHandlers.GetAlerts)
			monitorAPI.GET("/logs/levels", monitorHandlers.GetLogLevels)
			monitorAPI.POST("/logs/levels", monitorHandlers.SetLogLevel)
		}
	}

	// Live streams are special cases and remain at top level.
	r.GET("/monitor-logs/stream", monitorHandlers.MonitorAuthMiddleware(), monitorHandlers.StreamLogs)
	r.GET("/ws/monitor", monitorHandlers.MonitorAuthMiddleware(), monitorHandlers.HandleMonitorSocket)

	// API routes with session middleware
	api := r.Group("/api/v1")
	api.Use(middleware.SessionMiddleware())
	{
		auth := api.Group("/auth")
		{
			auth.GET("/affordance", affordanceHandlers.GetAffordance)
			auth.GET("/route", affordanceHandlers.GetRoute)
			auth.POST("/reconcile", reconcileHandlers.PostReconcile)
			auth.GET("/sse", sseHandlers.GetSSE)
		}

		api.GET("/avatar/:token", avatarHandlers.GetAvatar)
		api.GET("/health", healthHandlers.GetHealth)
	}

	return r
}
