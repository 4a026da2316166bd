// Package tenant handles loading and providing tenant-specific configurations.
package tenant

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SizeSpec is one configured rendition size for a tenant's media library.
type SizeSpec struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Crop   bool   `json:"crop"`
}

// DefaultSizes are used when a tenant does not configure its own.
var DefaultSizes = []SizeSpec{
	{Name: "thumbnail", Width: 150, Height: 150, Crop: true},
	{Name: "medium", Width: 300, Height: 300},
	{Name: "large", Width: 1024, Height: 1024},
}

// Config represents the structure of a single tenant's configuration
type Config struct {
	TenantID       string     `json:"tenantId"`
	Name           string     `json:"name"`
	SiteURL        string     `json:"siteUrl"`
	Status         string     `json:"status"`
	DatabaseType   string     `json:"databaseType"`
	TursoDatabase  string     `json:"TURSO_DATABASE_URL,omitempty"`
	TursoToken     string     `json:"TURSO_AUTH_TOKEN,omitempty"`
	TursoEnabled   bool       `json:"TURSO_ENABLED"`
	JWTSecret      string     `json:"JWT_SECRET,omitempty"`
	AdminPassword  string     `json:"ADMIN_PASSWORD,omitempty"`
	EditorPassword string     `json:"EDITOR_PASSWORD,omitempty"`
	MediaSizes     []SizeSpec `json:"mediaSizes,omitempty"`
	SQLitePath     string     `json:"-"`
	MediaRoot      string     `json:"-"`
}

// BaseURL is the tenant's public origin without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.SiteURL, "/")
}

// MediaURL is the public URL of a file stored under the media root.
func (c *Config) MediaURL(relPath string) string {
	return c.BaseURL() + "/media/" + strings.TrimLeft(filepath.ToSlash(relPath), "/")
}

// Sizes returns the configured rendition sizes, or DefaultSizes.
func (c *Config) Sizes() []SizeSpec {
	if len(c.MediaSizes) == 0 {
		return DefaultSizes
	}
	return c.MediaSizes
}

func configDir(dataDir, tenantID string) string {
	return filepath.Join(dataDir, "config", tenantID)
}

func registryPath(dataDir string) string {
	return filepath.Join(dataDir, "network", "tenants.json")
}

// LoadTenantConfig loads configuration for a specific tenant from its env.json file.
func LoadTenantConfig(dataDir, tenantID string) (*Config, error) {
	configPath := filepath.Join(configDir(dataDir, tenantID), "env.json")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("tenant config file not found at %s", configPath)
	}

	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not read tenant config file: %w", err)
	}

	var tenantConfig Config
	if err := json.Unmarshal(configFile, &tenantConfig); err != nil {
		return nil, fmt.Errorf("could not parse tenant config json: %w", err)
	}

	// Set computed fields
	tenantConfig.TenantID = tenantID
	tenantConfig.SQLitePath = filepath.Join(dataDir, "db", tenantID, "content.db")
	tenantConfig.MediaRoot = filepath.Join(dataDir, "media", tenantID)
	if tenantConfig.SiteURL == "" {
		tenantConfig.SiteURL = "http://" + tenantID + ".localhost"
	}

	return &tenantConfig, nil
}

// SaveTenantConfig writes env.json for a tenant, creating its directory.
func SaveTenantConfig(dataDir string, cfg *Config) error {
	dir := configDir(dataDir, cfg.TenantID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create tenant config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tenant config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "env.json"), data, 0600); err != nil {
		return fmt.Errorf("failed to write tenant config: %w", err)
	}
	return nil
}

// TenantRegistry holds the global tenant configuration
type TenantRegistry struct {
	Tenants map[string]TenantInfo `json:"tenants"`
}

// TenantInfo holds tenant metadata
type TenantInfo struct {
	TenantID     string `json:"tenantId"`
	Name         string `json:"name,omitempty"`
	SiteURL      string `json:"siteUrl,omitempty"`
	Status       string `json:"status"`       // "inactive", "active"
	DatabaseType string `json:"databaseType"` // "turso", "sqlite3"
}

// SortedIDs returns registry tenant ids in lexical order.
func (r *TenantRegistry) SortedIDs() []string {
	ids := make([]string, 0, len(r.Tenants))
	for id := range r.Tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadTenantRegistry loads the global tenant registry
func LoadTenantRegistry(dataDir string) (*TenantRegistry, error) {
	path := registryPath(dataDir)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &TenantRegistry{Tenants: map[string]TenantInfo{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant registry: %w", err)
	}

	var registry TenantRegistry
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse tenant registry: %w", err)
	}
	if registry.Tenants == nil {
		registry.Tenants = map[string]TenantInfo{}
	}

	return &registry, nil
}

// SaveTenantRegistry persists the registry.
func SaveTenantRegistry(dataDir string, registry *TenantRegistry) error {
	path := registryPath(dataDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}

// RegisterTenant adds a tenant to the registry and writes a default env.json
// when none exists. Existing entries are left alone.
func RegisterTenant(dataDir, tenantID, siteURL string) error {
	registry, err := LoadTenantRegistry(dataDir)
	if err != nil {
		return err
	}

	if _, exists := registry.Tenants[tenantID]; !exists {
		registry.Tenants[tenantID] = TenantInfo{
			TenantID:     tenantID,
			Name:         tenantID,
			SiteURL:      siteURL,
			Status:       "inactive",
			DatabaseType: "",
		}
		if err := SaveTenantRegistry(dataDir, registry); err != nil {
			return err
		}
	}

	envPath := filepath.Join(configDir(dataDir, tenantID), "env.json")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return SaveTenantConfig(dataDir, &Config{
			TenantID:     tenantID,
			Name:         tenantID,
			SiteURL:      siteURL,
			Status:       "inactive",
			DatabaseType: "sqlite3",
		})
	}
	return nil
}

// UpdateTenantStatus records the activation state of a tenant in the registry.
func UpdateTenantStatus(dataDir, tenantID, status, dbType string) error {
	registry, err := LoadTenantRegistry(dataDir)
	if err != nil {
		return err
	}

	info, exists := registry.Tenants[tenantID]
	if !exists {
		return fmt.Errorf("unknown tenant: %s", tenantID)
	}
	info.Status = status
	if dbType != "" {
		info.DatabaseType = dbType
	}
	registry.Tenants[tenantID] = info

	return SaveTenantRegistry(dataDir, registry)
}
