// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/AtRiskMedia/postdup-go/internal/application/container"
	"github.com/AtRiskMedia/postdup-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/postdup-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/postdup-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(config.CORSOrigins))
	r.Use(middleware.RequestMetrics(container.Metrics, container.Logger))

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.PerfTracker)
	multiTenantHandlers := handlers.NewMultiTenantHandlers(container.MultiTenantService, container.Logger, container.PerfTracker)
	duplicateHandlers := handlers.NewDuplicateHandlers(
		container.DuplicateService,
		container.BulkService,
		container.MultiTenantService,
		config.DuplicationTimeout,
		container.Logger,
		container.PerfTracker,
	)
	logHandlers := handlers.NewLogHandlers(container.OplogService, container.LogBroadcaster, container.Logger, container.PerfTracker)
	settingsHandlers := handlers.NewSettingsHandlers(container.SettingsService, container.Logger, container.PerfTracker)
	systemHandlers := handlers.NewSystemHandlers(container.TenantManager, container.LogBroadcaster, container.Logger)

	r.GET("/health", systemHandlers.GetHealth)
	r.GET("/metrics", gin.WrapH(container.Metrics.Handler()))

	v1 := r.Group("/api/v1")

	// Network administration
	network := v1.Group("/network")
	{
		network.POST("/login", authHandlers.PostNetworkLogin)

		protected := network.Group("")
		protected.Use(middleware.NetworkAuth(container.AuthService))
		{
			protected.GET("/tenants", multiTenantHandlers.GetTenants)
			protected.GET("/tenants/:tenantId/posts", multiTenantHandlers.GetTenantPosts)
			protected.POST("/duplicate", duplicateHandlers.PostNetworkDuplicate)
			protected.GET("/logs", logHandlers.GetLogs)
			protected.DELETE("/logs", logHandlers.DeleteLogs)
			protected.GET("/logs/stream", logHandlers.StreamLogs)
			protected.GET("/logging/levels", systemHandlers.GetLogLevels)
			protected.PUT("/logging/levels", systemHandlers.SetLogLevel)
		}
	}

	settings := v1.Group("/settings")
	settings.Use(middleware.NetworkAuth(container.AuthService))
	{
		settings.GET("", settingsHandlers.GetSettings)
		settings.PUT("", settingsHandlers.PutSettings)
	}

	// Tenant-scoped routes
	tenantAPI := v1.Group("")
	tenantAPI.Use(middleware.TenantMiddleware(container.TenantManager, container.Logger, container.PerfTracker))
	{
		tenantAPI.POST("/auth/login", authHandlers.PostLogin)

		posts := tenantAPI.Group("/posts")
		posts.Use(middleware.TenantRoleAuth(container.AuthService))
		{
			posts.POST("/duplicate", duplicateHandlers.PostDuplicatePosts)
			posts.POST("/:id/duplicate", duplicateHandlers.PostDuplicatePost)
		}
	}

	return r
}
