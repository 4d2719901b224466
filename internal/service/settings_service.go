package service

import (
	"context"

	"github.com/hostkita/panelstore/internal/models"
	"github.com/hostkita/panelstore/internal/repository"
	"github.com/hostkita/panelstore/internal/settings"
)

// SettingsService reads the overlay through the cache and owns the single
// write path that replaces every settings field atomically.
type SettingsService struct {
	repo  *repository.SubscriptionRepository
	cache *settings.Cache
}

// NewSettingsService creates a settings service.
func NewSettingsService(repo *repository.SubscriptionRepository, cache *settings.Cache) *SettingsService {
	return &SettingsService{repo: repo, cache: cache}
}

// Get returns the full settings, cached.
func (s *SettingsService) Get(ctx context.Context) models.Settings {
	return s.cache.Get(ctx)
}

// Public returns the unauthenticated storefront view.
func (s *SettingsService) Public(ctx context.Context) models.PublicSettings {
	cfg := s.cache.Get(ctx)
	return models.PublicSettings{
		LogoURL:      cfg.LogoURL,
		BannerURL:    cfg.BannerURL,
		Announcement: cfg.Announcement,
		Maintenance:  cfg.Maintenance,
	}
}

// Update replaces the persisted settings and drops the cached copy so the
// next read sees the new values.
func (s *SettingsService) Update(ctx context.Context, req models.UpdateSettingsRequest) error {
	err := s.repo.Update(ctx, func(doc *repository.Document) error {
		prices := req.Prices
		if prices == nil {
			prices = map[string]int64{}
		}
		doc.Settings = models.Settings{
			LogoURL:      req.LogoURL,
			BannerURL:    req.BannerURL,
			Prices:       prices,
			Announcement: req.Announcement,
			Maintenance:  req.Maintenance,
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}
