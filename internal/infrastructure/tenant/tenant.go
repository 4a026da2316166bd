// Package tenant manages tenant-specific configurations and context,
// isolating multi-tenancy logic from the rest of the application.
package tenant

import (
	"fmt"
	"sync"

	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/database"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Summary is the network-facing description of a tenant.
type Summary struct {
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
	SiteURL  string `json:"siteUrl"`
	Status   string `json:"status"`
}

// Manager coordinates tenant detection and context creation. Open contexts
// are cached in an LRU bounded by the configured tenant limit.
type Manager struct {
	dataDir        string
	detector       *Detector
	contexts       *lru.Cache[string, *Context]
	contextMutexes sync.Map // per-tenant creation locks
	logger         *logging.ChanneledLogger
}

// NewManager creates and initializes a new tenant manager.
func NewManager(dataDir string, maxTenants int, logger *logging.ChanneledLogger) (*Manager, error) {
	detector, err := NewDetector(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tenant detector: %w", err)
	}
	if maxTenants <= 0 {
		maxTenants = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	m := &Manager{
		dataDir:  dataDir,
		detector: detector,
		logger:   logger,
	}

	cache, err := lru.NewWithEvict[string, *Context](maxTenants, func(tenantID string, ctx *Context) {
		m.logger.Tenant().Debug("Evicting tenant context", "tenantId", tenantID)
		if err := ctx.Close(); err != nil {
			m.logger.Tenant().Warn("Failed to close evicted tenant context", "tenantId", tenantID, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant context cache: %w", err)
	}
	m.contexts = cache

	return m, nil
}

// GetContextByID returns the cached context for tenantID, opening it on
// first use.
func (m *Manager) GetContextByID(tenantID string) (*Context, error) {
	if ctx, ok := m.contexts.Get(tenantID); ok && ctx.Database != nil && ctx.Database.Conn != nil {
		return ctx, nil
	}

	tenantMutexInterface, _ := m.contextMutexes.LoadOrStore(tenantID, &sync.Mutex{})
	tenantMutex := tenantMutexInterface.(*sync.Mutex)

	tenantMutex.Lock()
	defer tenantMutex.Unlock()

	if ctx, ok := m.contexts.Get(tenantID); ok && ctx.Database != nil && ctx.Database.Conn != nil {
		return ctx, nil
	}

	return m.createContext(tenantID)
}

func (m *Manager) createContext(tenantID string) (*Context, error) {
	if !m.detector.IsKnown(tenantID) {
		if err := m.detector.RefreshRegistry(); err != nil {
			return nil, err
		}
		if !m.detector.IsKnown(tenantID) {
			return nil, fmt.Errorf("unknown tenant: %s", tenantID)
		}
	}

	cfg, err := LoadTenantConfig(m.dataDir, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant config: %w", err)
	}

	db, err := NewDatabase(cfg, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := database.NewTableCreator().CreateSchema(db.Conn); err != nil {
		return nil, fmt.Errorf("failed to prepare schema for tenant %s: %w", tenantID, err)
	}

	ctx := NewContext(cfg, db)
	ctx.Status = m.detector.GetTenantStatus(tenantID)

	m.contexts.Add(tenantID, ctx)
	m.logger.Tenant().Info("Tenant context created", "tenantId", tenantID, "database", ctx.GetDatabaseInfo())

	return ctx, nil
}

// Adopt installs an externally built context, replacing any cached one.
func (m *Manager) Adopt(ctx *Context) {
	m.contexts.Add(ctx.TenantID, ctx)
}

// ListTenants enumerates registered tenants for the network UI.
func (m *Manager) ListTenants() ([]Summary, error) {
	if err := m.detector.RefreshRegistry(); err != nil {
		return nil, err
	}
	registry := m.detector.GetRegistry()

	out := make([]Summary, 0, len(registry.Tenants))
	for _, id := range registry.SortedIDs() {
		info := registry.Tenants[id]
		name := info.Name
		if name == "" {
			name = id
		}
		out = append(out, Summary{
			TenantID: id,
			Name:     name,
			SiteURL:  info.SiteURL,
			Status:   info.Status,
		})
	}
	return out, nil
}

// PreActivateAllTenants opens every registered tenant, creating its schema,
// and marks it active in the registry.
func (m *Manager) PreActivateAllTenants() error {
	registry, err := LoadTenantRegistry(m.dataDir)
	if err != nil {
		return fmt.Errorf("failed to load tenant registry for pre-activation: %w", err)
	}

	var failedTenants []string
	for _, tenantID := range registry.SortedIDs() {
		if err := m.preActivateSingleTenant(tenantID); err != nil {
			m.logger.LogError(logging.ChannelTenant, "pre_activate", err, tenantID, nil)
			failedTenants = append(failedTenants, tenantID)
		}
	}

	if err := m.detector.RefreshRegistry(); err != nil {
		return fmt.Errorf("failed to refresh detector registry: %w", err)
	}

	if len(failedTenants) > 0 {
		return fmt.Errorf("pre-activation failed for tenants: %v", failedTenants)
	}
	return nil
}

func (m *Manager) preActivateSingleTenant(tenantID string) error {
	ctx, err := m.createContext(tenantID)
	if err != nil {
		return fmt.Errorf("failed to create context for tenant %s: %w", tenantID, err)
	}

	if err := ctx.Database.Conn.Ping(); err != nil {
		return fmt.Errorf("database connection test failed for tenant %s: %w", tenantID, err)
	}

	dbType := "sqlite3"
	if ctx.Database.UseTurso {
		dbType = "turso"
	}
	ctx.Status = "active"
	return UpdateTenantStatus(m.dataDir, tenantID, "active", dbType)
}

// GetActiveTenantCount returns the number of active tenants
func (m *Manager) GetActiveTenantCount() (int, error) {
	registry, err := LoadTenantRegistry(m.dataDir)
	if err != nil {
		return 0, fmt.Errorf("failed to load tenant registry: %w", err)
	}

	activeCount := 0
	for _, tenantInfo := range registry.Tenants {
		if tenantInfo.Status == "active" {
			activeCount++
		}
	}
	return activeCount, nil
}

// Close cleans up all tenant contexts
func (m *Manager) Close() error {
	m.contexts.Purge()
	CloseAllPools()
	return nil
}
