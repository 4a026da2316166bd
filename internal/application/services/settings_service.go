package services

import (
	"fmt"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/repositories"
)

// Settings enum values.
const (
	PostDateDuplicate = "duplicate"
	PostDateCurrent   = "current"
	OffsetOlder       = "older"
	OffsetNewer       = "newer"
)

// DefaultSettings keeps status and date and applies no offset.
func DefaultSettings() *content.Settings {
	return &content.Settings{
		PostStatus:      StatusSame,
		PostDate:        PostDateDuplicate,
		OffsetDirection: OffsetOlder,
	}
}

// SanitizeSettings replaces unknown enum values with their defaults and
// clamps negative offsets to zero.
func SanitizeSettings(in content.Settings) *content.Settings {
	out := in

	switch out.PostStatus {
	case StatusSame, content.StatusDraft, content.StatusPending, content.StatusPublish:
	default:
		out.PostStatus = StatusSame
	}

	switch out.PostDate {
	case PostDateDuplicate, PostDateCurrent:
	default:
		out.PostDate = PostDateDuplicate
	}

	switch out.OffsetDirection {
	case OffsetOlder, OffsetNewer:
	default:
		out.OffsetDirection = OffsetOlder
	}

	out.OffsetDays = max(out.OffsetDays, 0)
	out.OffsetHours = max(out.OffsetHours, 0)
	out.OffsetMinutes = max(out.OffsetMinutes, 0)
	out.OffsetSeconds = max(out.OffsetSeconds, 0)

	return &out
}

// SettingsService reads and updates the installation-wide settings record.
type SettingsService struct {
	repo repositories.SettingsRepository
}

func NewSettingsService(repo repositories.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Get returns the stored settings, or the defaults when none were saved.
func (s *SettingsService) Get() (*content.Settings, error) {
	settings, err := s.repo.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings == nil {
		return DefaultSettings(), nil
	}
	return SanitizeSettings(*settings), nil
}

// Update sanitises and stores settings, returning what was stored.
func (s *SettingsService) Update(settings content.Settings) (*content.Settings, error) {
	clean := SanitizeSettings(settings)
	if err := s.repo.Save(clean); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return clean, nil
}
