// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/medicarepro/medicare-offline-go/internal/application/container"
	"github.com/medicarepro/medicare-offline-go/internal/presentation/http/handlers"
	"github.com/medicarepro/medicare-offline-go/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	offlineHandlers := handlers.NewOfflineHandlers(container.OfflineService, container.Logger)
	adminHandlers := handlers.NewAdminHandlers(container)

	// Offline coordinator API
	offlineAPI := r.Group("/api/v1/offline")
	{
		offlineAPI.POST("/download", offlineHandlers.Download)
		offlineAPI.GET("/resources", offlineHandlers.GetResources)
		offlineAPI.GET("/search", offlineHandlers.Search)
		offlineAPI.GET("/status", offlineHandlers.Status)
		offlineAPI.GET("/ws", func(c *gin.Context) {
			container.Bridge.HandleConnection(c.Writer, c.Request)
		})
	}

	// Operator control plane
	adminAPI := r.Group("/api/v1/admin")
	{
		adminAPI.GET("/auth", adminHandlers.AuthCheck)
		adminAPI.POST("/login", adminHandlers.Login)

		adminAPI.Use(middleware.OperatorAuthMiddleware())
		{
			adminAPI.POST("/sync", adminHandlers.TriggerSync)
			adminAPI.GET("/cache", adminHandlers.CacheStatus)
			adminAPI.DELETE("/cache", adminHandlers.ClearCache)
			adminAPI.GET("/logs/levels", adminHandlers.GetLogLevels)
			adminAPI.POST("/logs/levels", adminHandlers.SetLogLevel)
		}
	}

	// Everything else flows through the interception worker's routing
	// policy: API network-first, navigation shell fallback, assets
	// cache-first.
	r.NoRoute(gin.WrapH(container.Worker))

	return r
}
