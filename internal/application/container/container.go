// Package container provides dependency injection for all singleton services
package container

import (
	"context"
	"fmt"
	"io"

	"github.com/AtRiskMedia/postdup-go/internal/application/services"
	"github.com/AtRiskMedia/postdup-go/internal/domain/events"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/persistence/network"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/persistence/oplog"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
	"github.com/AtRiskMedia/postdup-go/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Duplication services
	DuplicateService   *services.DuplicateService
	CrossTenantService *services.CrossTenantService
	BulkService        *services.BulkService
	MultiTenantService *services.MultiTenantService

	// Network services
	AuthService     *services.AuthService
	SettingsService *services.SettingsService
	OplogService    *services.OplogService

	// Infrastructure Dependencies
	TenantManager  *tenant.Manager
	Installation   *database.DB
	OplogStore     oplog.Store
	EventBus       *messaging.EventBus
	LogBroadcaster *messaging.LogBroadcaster
	Logger         *logging.ChanneledLogger
	PerfTracker    *performance.Tracker
	Metrics        *metrics.Metrics
}

// NewContainer creates and wires all singleton services around an already
// initialised tenant manager.
func NewContainer(ctx context.Context, tenantManager *tenant.Manager, logger *logging.ChanneledLogger) (*Container, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	perfTracker := performance.NewTracker(performance.DefaultTrackerConfig())
	perfTracker.Observe(m.ObserveMarker)
	perfTracker.Observe(logger.LogMarker)

	installation, err := database.OpenInstallation(config.DataDir, logger)
	if err != nil {
		return nil, err
	}

	store, err := newOplogStore(ctx, installation, logger)
	if err != nil {
		installation.Close()
		return nil, err
	}

	bus := messaging.NewEventBus(logger)
	broadcaster := messaging.NewLogBroadcaster(logger)
	subscribeNotifier(bus, logger)

	settingsService := services.NewSettingsService(network.NewSettingsRepository(installation.DB))
	oplogService := services.NewOplogService(store, broadcaster, m, logger)

	pipeline := services.NewPipeline(logger, bus, perfTracker, m)
	single := services.NewDuplicateService(settingsService, pipeline)
	crossTenant := services.NewCrossTenantService(tenantManager, pipeline)

	return &Container{
		DuplicateService:   single,
		CrossTenantService: crossTenant,
		BulkService:        services.NewBulkService(crossTenant, single, oplogService, pipeline),
		MultiTenantService: services.NewMultiTenantService(tenantManager),

		AuthService:     services.NewAuthService(logger, config.NetworkAdminPassword, config.NetworkJWTSecret, config.TokenTTL),
		SettingsService: settingsService,
		OplogService:    oplogService,

		TenantManager:  tenantManager,
		Installation:   installation,
		OplogStore:     store,
		EventBus:       bus,
		LogBroadcaster: broadcaster,
		Logger:         logger,
		PerfTracker:    perfTracker,
		Metrics:        m,
	}, nil
}

// newOplogStore picks the Redis log when REDIS_URL is set so several
// processes can share it, otherwise the installation database.
func newOplogStore(ctx context.Context, installation *database.DB, logger *logging.ChanneledLogger) (oplog.Store, error) {
	if config.RedisURL == "" {
		logger.Startup().Info("Operation log backed by installation database")
		return oplog.NewSQLStore(installation.DB), nil
	}
	store, err := oplog.NewRedisStoreFromURL(ctx, config.RedisURL, config.OplogLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to open redis operation log: %w", err)
	}
	logger.Startup().Info("Operation log backed by redis")
	return store, nil
}

func subscribeNotifier(bus *messaging.EventBus, logger *logging.ChanneledLogger) {
	if config.ResendAPIKey == "" || config.NotifyEmail == "" {
		logger.Startup().Debug("Bulk duplication emails disabled")
		return
	}
	service, err := email.NewService(config.ResendAPIKey, config.EmailFrom)
	if err != nil {
		logger.Startup().Warn("Email service unavailable", "error", err.Error())
		return
	}
	bus.Subscribe(events.AfterBulkDuplicate, email.NewNotifier(service, config.NotifyEmail, logger).HandleBulkDuplicate)
	logger.Startup().Info("Bulk duplication emails enabled", "to", config.NotifyEmail)
}

// Close releases the installation stores. The tenant manager is closed by
// its owner.
func (c *Container) Close() error {
	var firstErr error
	if closer, ok := c.OplogStore.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			firstErr = err
		}
	}
	if c.Installation != nil {
		if err := c.Installation.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
