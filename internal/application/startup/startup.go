// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/application/container"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/postdup-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/postdup-go/pkg/config"
	"github.com/gin-gonic/gin"
)

const poolCleanupInterval = 5 * time.Minute

// Initialize performs the complete multi-tenant startup sequence
func Initialize() error {
	setupGin()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	// Step 1: Channeled logging
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Starting postdup", "dataDir", config.DataDir, "port", config.Port)

	// Step 2: Load tenant registry to discover all tenants
	phaseStart := time.Now()
	registry, err := tenant.LoadTenantRegistry(config.DataDir)
	if err != nil {
		return fmt.Errorf("failed to load tenant registry: %w", err)
	}

	if len(registry.Tenants) == 0 {
		logger.Startup().Warn("No tenants found in registry - creating default tenant")
		if err := tenant.RegisterTenant(config.DataDir, "default", "http://localhost:"+config.Port); err != nil {
			return fmt.Errorf("failed to register default tenant: %w", err)
		}
		registry, err = tenant.LoadTenantRegistry(config.DataDir)
		if err != nil {
			return fmt.Errorf("failed to reload registry: %w", err)
		}
	}
	logger.LogStartupPhase("load_registry", time.Since(phaseStart), true, map[string]any{"tenants": len(registry.Tenants)})

	// Step 3: Tenant manager and pre-activation
	phaseStart = time.Now()
	tenantManager, err := tenant.NewManager(config.DataDir, config.MaxTenants, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tenant manager: %w", err)
	}

	// A broken tenant store only fails requests addressed to it.
	activationErr := tenantManager.PreActivateAllTenants()
	if activationErr != nil {
		logger.Startup().Warn("Tenant pre-activation incomplete", "error", activationErr.Error())
	}

	activeCount, err := tenantManager.GetActiveTenantCount()
	if err != nil {
		return fmt.Errorf("failed to get active tenant count: %w", err)
	}
	logger.LogStartupPhase("activate_tenants", time.Since(phaseStart), activationErr == nil, map[string]any{"activeTenants": activeCount})

	// Step 4: Create dependency injection container
	phaseStart = time.Now()
	appContainer, err := container.NewContainer(ctx, tenantManager, logger)
	if err != nil {
		tenantManager.Close()
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	logger.LogStartupPhase("container", time.Since(phaseStart), true, nil)

	go startPoolCleanupWorker(ctx, logger)

	// Step 5: Start HTTP server
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"activeTenants", activeCount,
		"port", config.Port)

	// Wait for shutdown signal or server failure
	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	if err := appContainer.Close(); err != nil {
		logger.Shutdown().Error("Error closing installation stores", "error", err.Error())
	}

	if err := tenantManager.Close(); err != nil {
		logger.Shutdown().Error("Error closing tenant manager", "error", err.Error())
	} else {
		logger.Shutdown().Info("Tenant manager closed successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// startPoolCleanupWorker periodically drops tenant database handles that stopped answering.
func startPoolCleanupWorker(ctx context.Context, logger *logging.ChanneledLogger) {
	ticker := time.NewTicker(poolCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Shutdown().Info("Pool cleanup worker stopped")
			return
		case <-ticker.C:
			if removed := tenant.CleanupStaleConnections(logger); removed > 0 {
				logger.Database().Info("Pool cleanup cycle complete", "removed", removed)
			}
		}
	}
}

func newLogger() (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = config.LogToFile
	cfg.LogDirectory = config.LogDirectory
	cfg.JSONFormat = config.LogJSON
	cfg.DefaultLevel = logging.ParseLevel(config.LogLevel)
	return logging.NewChanneledLogger(cfg)
}

// setupGin configures gin mode and the fallback standard logger
func setupGin() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
