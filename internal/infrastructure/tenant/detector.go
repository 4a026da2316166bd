package tenant

import (
	"fmt"
	"sync"
)

// Detector answers registry membership and status questions for the
// manager, reloading the registry when an unknown id shows up.
type Detector struct {
	dataDir  string
	registry *TenantRegistry
	mu       sync.RWMutex
}

// NewDetector creates a new tenant detector
func NewDetector(dataDir string) (*Detector, error) {
	registry, err := LoadTenantRegistry(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant registry: %w", err)
	}
	return &Detector{dataDir: dataDir, registry: registry}, nil
}

// IsKnown reports whether the tenant is in the registry.
func (d *Detector) IsKnown(tenantID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, exists := d.registry.Tenants[tenantID]
	return exists
}

// GetTenantStatus returns the current status of a tenant
func (d *Detector) GetTenantStatus(tenantID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if tenantInfo, exists := d.registry.Tenants[tenantID]; exists {
		return tenantInfo.Status
	}
	return "unknown"
}

// RefreshRegistry reloads the tenant registry from disk
func (d *Detector) RefreshRegistry() error {
	registry, err := LoadTenantRegistry(d.dataDir)
	if err != nil {
		return fmt.Errorf("failed to refresh tenant registry: %w", err)
	}
	d.mu.Lock()
	d.registry = registry
	d.mu.Unlock()
	return nil
}

// GetRegistry returns a snapshot of the current registry
func (d *Detector) GetRegistry() *TenantRegistry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snapshot := &TenantRegistry{Tenants: make(map[string]TenantInfo, len(d.registry.Tenants))}
	for id, info := range d.registry.Tenants {
		snapshot.Tenants[id] = info
	}
	return snapshot
}
