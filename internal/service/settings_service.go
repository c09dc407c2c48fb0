package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iconidentify/teardown/internal/domain"
	"github.com/iconidentify/teardown/internal/repository"
	"github.com/iconidentify/teardown/pkg/crypto"
	"github.com/iconidentify/teardown/pkg/provider"
)

// SettingsService resolves which provider, model, endpoint and key a run uses.
//
// Effective settings are built in three layers: the built-in defaults of the
// active provider, then the stored overrides, then per-request overrides.
type SettingsService struct {
	repo            repository.SettingsRepository
	box             *crypto.Box
	defaultProvider provider.Name
	logger          *slog.Logger
}

// NewSettingsService creates a new settings service. box may be nil, in
// which case the API key is stored as given.
func NewSettingsService(
	repo repository.SettingsRepository,
	box *crypto.Box,
	defaultProvider provider.Name,
	logger *slog.Logger,
) *SettingsService {
	if defaultProvider == "" {
		defaultProvider = domain.DefaultProvider
	}
	return &SettingsService{
		repo:            repo,
		box:             box,
		defaultProvider: defaultProvider,
		logger:          logger,
	}
}

// SettingsUpdate changes stored settings. A nil field is left alone; a
// pointer to "" removes the stored override.
type SettingsUpdate struct {
	Provider *string
	Model    *string
	BaseURL  *string
	APIKey   *string
}

// Stored returns the stored overrides with the API key opened.
func (s *SettingsService) Stored(ctx context.Context) (domain.Settings, error) {
	values, err := s.repo.All(ctx)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	stored := domain.Settings{
		Provider: values[domain.SettingProvider],
		Model:    values[domain.SettingModel],
		BaseURL:  values[domain.SettingBaseURL],
		APIKey:   s.openKey(values[domain.SettingAPIKey]),
	}
	return stored, nil
}

// Effective resolves the settings for one run. Fields set in override win
// over stored values, which win over the provider defaults.
func (s *SettingsService) Effective(ctx context.Context, override domain.Settings) (domain.Settings, error) {
	stored, err := s.Stored(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	active := s.defaultProvider.String()
	if stored.Provider != "" {
		active = stored.Provider
	}
	if override.Provider != "" {
		active = override.Provider
	}

	name, err := provider.ParseName(active)
	if err != nil {
		return domain.Settings{}, err
	}
	defaults, _ := domain.DefaultsFor(name)

	eff := domain.Settings{
		Provider: name.String(),
		Model:    defaults.Model,
		BaseURL:  defaults.BaseURL,
	}
	stored.Provider = ""
	override.Provider = ""
	eff = eff.Overlay(stored).Overlay(override)
	eff.BaseURL = strings.TrimRight(eff.BaseURL, "/")

	return eff, nil
}

// UsesDefaultEndpoint reports whether eff targets the provider's built-in
// base URL.
func (s *SettingsService) UsesDefaultEndpoint(eff domain.Settings) bool {
	defaults, ok := domain.DefaultsFor(provider.Name(eff.Provider))
	if !ok {
		return false
	}
	return strings.TrimRight(eff.BaseURL, "/") == strings.TrimRight(defaults.BaseURL, "/")
}

// Save applies an update to the stored settings.
func (s *SettingsService) Save(ctx context.Context, u SettingsUpdate) error {
	if u.Provider != nil && *u.Provider != "" {
		name, err := provider.ParseName(*u.Provider)
		if err != nil {
			return err
		}
		normalized := name.String()
		u.Provider = &normalized
	}

	if u.APIKey != nil && *u.APIKey != "" && s.box != nil {
		sealed, err := s.box.Seal(strings.TrimSpace(*u.APIKey))
		if err != nil {
			return fmt.Errorf("seal api key: %w", err)
		}
		u.APIKey = &sealed
	}

	fields := []struct {
		key   domain.SettingKey
		value *string
	}{
		{domain.SettingProvider, u.Provider},
		{domain.SettingModel, u.Model},
		{domain.SettingBaseURL, u.BaseURL},
		{domain.SettingAPIKey, u.APIKey},
	}

	for _, f := range fields {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if v == "" {
			if err := s.repo.Delete(ctx, f.key); err != nil {
				return fmt.Errorf("remove %s: %w", f.key, err)
			}
			continue
		}
		if err := s.repo.Set(ctx, f.key, v); err != nil {
			return fmt.Errorf("save %s: %w", f.key, err)
		}
	}

	s.logger.Info("settings updated",
		"provider_set", u.Provider != nil,
		"model_set", u.Model != nil,
		"base_url_set", u.BaseURL != nil,
		"api_key_set", u.APIKey != nil,
	)
	return nil
}

// DefaultProvider returns the provider used when none is stored.
func (s *SettingsService) DefaultProvider() provider.Name {
	return s.defaultProvider
}

// Ping checks the backing store.
func (s *SettingsService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// openKey returns the usable form of a stored key. A sealed key that cannot
// be opened is treated as unset.
func (s *SettingsService) openKey(stored string) string {
	if stored == "" || !crypto.IsSealed(stored) {
		return stored
	}
	if s.box == nil {
		s.logger.Warn("stored API key is encrypted but no settings secret is configured")
		return ""
	}
	key, err := s.box.Open(stored)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptFailed) {
			s.logger.Warn("stored API key could not be decrypted; was the settings secret changed?")
		} else {
			s.logger.Warn("stored API key is unreadable", "error", err)
		}
		return ""
	}
	return key
}
