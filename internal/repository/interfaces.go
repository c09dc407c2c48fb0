package repository

import (
	"context"

	"github.com/iconidentify/teardown/internal/domain"
)

// SettingsRepository persists the user's provider settings as key/value pairs.
type SettingsRepository interface {
	// Get returns the stored value or domain.ErrSettingNotFound.
	Get(ctx context.Context, key domain.SettingKey) (string, error)

	// Set stores a value, replacing any previous one.
	Set(ctx context.Context, key domain.SettingKey, value string) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key domain.SettingKey) error

	// All returns every stored value.
	All(ctx context.Context) (map[domain.SettingKey]string, error)

	// Ping checks the store is usable.
	Ping(ctx context.Context) error
}

// AnalysisRepository keeps recent analysis runs.
type AnalysisRepository interface {
	// Save inserts or replaces a run.
	Save(ctx context.Context, a *domain.Analysis) error

	// Get retrieves a run by ID.
	Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error)

	// List returns runs newest first.
	List(ctx context.Context, limit int) ([]*domain.Analysis, error)

	// Stats returns run counts by status.
	Stats(ctx context.Context) (*AnalysisStats, error)
}

// AnalysisStats contains run counts.
type AnalysisStats struct {
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
