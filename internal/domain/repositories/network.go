package repositories

import "github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"

// SettingsRepository persists the installation-wide duplication settings.
type SettingsRepository interface {
	// Load returns nil when nothing has been saved yet.
	Load() (*content.Settings, error)
	Save(settings *content.Settings) error
}
