package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iconidentify/teardown/internal/domain"
	"github.com/iconidentify/teardown/internal/service"
	"github.com/iconidentify/teardown/pkg/provider"
)

// SettingsStore reads and writes provider settings.
type SettingsStore interface {
	Effective(ctx context.Context, override domain.Settings) (domain.Settings, error)
	Stored(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, u service.SettingsUpdate) error
	DefaultProvider() provider.Name
}

// SettingsHandler handles settings HTTP requests.
type SettingsHandler struct {
	svc    SettingsStore
	logger *slog.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(svc SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		svc:    svc,
		logger: logger,
	}
}

// SettingsResponse shows the effective settings and which parts are
// overridden. The API key itself is never returned.
type SettingsResponse struct {
	Provider  string            `json:"provider"`
	Model     string            `json:"model"`
	BaseURL   string            `json:"base_url"`
	APIKeySet bool              `json:"api_key_set"`
	Overrides OverridesResponse `json:"overrides"`
}

// OverridesResponse lists the stored values; empty means "use the default".
type OverridesResponse struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	BaseURL   string `json:"base_url"`
	APIKeySet bool   `json:"api_key_set"`
}

// UpdateSettingsRequest is the JSON body for PUT /api/v1/settings. An
// omitted field is left unchanged; an empty string removes the override.
type UpdateSettingsRequest struct {
	Provider *string `json:"provider"`
	Model    *string `json:"model"`
	BaseURL  *string `json:"base_url"`
	APIKey   *string `json:"api_key"`
}

// DefaultsResponse lists the built-in defaults.
type DefaultsResponse struct {
	DefaultProvider string                             `json:"default_provider"`
	Providers       map[string]domain.ProviderDefaults `json:"providers"`
}

// Get handles GET /api/v1/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.current(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update handles PUT /api/v1/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.svc.Save(r.Context(), service.SettingsUpdate{
		Provider: req.Provider,
		Model:    req.Model,
		BaseURL:  req.BaseURL,
		APIKey:   req.APIKey,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownProvider) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to save settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	h.Get(w, r)
}

// Defaults handles GET /api/v1/settings/defaults
func (h *SettingsHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	resp := DefaultsResponse{
		DefaultProvider: h.svc.DefaultProvider().String(),
		Providers:       make(map[string]domain.ProviderDefaults),
	}
	for name, d := range domain.AllDefaults() {
		resp.Providers[name.String()] = d
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SettingsHandler) current(ctx context.Context) (*SettingsResponse, error) {
	stored, err := h.svc.Stored(ctx)
	if err != nil {
		return nil, err
	}
	eff, err := h.svc.Effective(ctx, domain.Settings{})
	if err != nil {
		// unsupported stored provider: show the default so it can be fixed
		if !errors.Is(err, domain.ErrUnknownProvider) {
			return nil, err
		}
		eff, err = h.svc.Effective(ctx, domain.Settings{Provider: h.svc.DefaultProvider().String()})
		if err != nil {
			return nil, err
		}
	}

	return &SettingsResponse{
		Provider:  eff.Provider,
		Model:     eff.Model,
		BaseURL:   eff.BaseURL,
		APIKeySet: eff.APIKey != "",
		Overrides: OverridesResponse{
			Provider:  stored.Provider,
			Model:     stored.Model,
			BaseURL:   stored.BaseURL,
			APIKeySet: stored.APIKey != "",
		},
	}, nil
}
