package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/iconidentify/teardown/internal/domain"
)

func newSQLiteRepo(t *testing.T) *SQLiteSettingsRepository {
	t.Helper()
	repo, err := NewSQLiteSettingsRepository(filepath.Join(t.TempDir(), "data", "settings.db"))
	if err != nil {
		t.Fatalf("NewSQLiteSettingsRepository failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// settingsRepos runs the same contract against both implementations.
func settingsRepos(t *testing.T) map[string]SettingsRepository {
	return map[string]SettingsRepository{
		"memory": NewInMemorySettingsRepository(),
		"sqlite": newSQLiteRepo(t),
	}
}

func TestSettingsRepository_SetGet(t *testing.T) {
	for name, repo := range settingsRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := repo.Get(ctx, domain.SettingModel); !errors.Is(err, domain.ErrSettingNotFound) {
				t.Errorf("expected ErrSettingNotFound, got %v", err)
			}

			if err := repo.Set(ctx, domain.SettingModel, "gpt-4o-mini"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			got, err := repo.Get(ctx, domain.SettingModel)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got != "gpt-4o-mini" {
				t.Errorf("Get = %q, want %q", got, "gpt-4o-mini")
			}

			if err := repo.Set(ctx, domain.SettingModel, "gpt-4o"); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			got, _ = repo.Get(ctx, domain.SettingModel)
			if got != "gpt-4o" {
				t.Errorf("after overwrite Get = %q, want %q", got, "gpt-4o")
			}
		})
	}
}

func TestSettingsRepository_Delete(t *testing.T) {
	for name, repo := range settingsRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			repo.Set(ctx, domain.SettingBaseURL, "https://proxy.example.com/v1")
			if err := repo.Delete(ctx, domain.SettingBaseURL); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := repo.Get(ctx, domain.SettingBaseURL); !errors.Is(err, domain.ErrSettingNotFound) {
				t.Errorf("expected ErrSettingNotFound after delete, got %v", err)
			}

			if err := repo.Delete(ctx, domain.SettingBaseURL); err != nil {
				t.Errorf("deleting a missing key should succeed, got %v", err)
			}
		})
	}
}

func TestSettingsRepository_All(t *testing.T) {
	for name, repo := range settingsRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			repo.Set(ctx, domain.SettingProvider, "gemini")
			repo.Set(ctx, domain.SettingAPIKey, "secret")

			all, err := repo.All(ctx)
			if err != nil {
				t.Fatalf("All failed: %v", err)
			}
			if len(all) != 2 {
				t.Fatalf("len = %d, want 2", len(all))
			}
			if all[domain.SettingProvider] != "gemini" || all[domain.SettingAPIKey] != "secret" {
				t.Errorf("All = %v", all)
			}
		})
	}
}

func TestSettingsRepository_InvalidKey(t *testing.T) {
	for name, repo := range settingsRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			bad := domain.SettingKey("theme")

			if err := repo.Set(ctx, bad, "dark"); !errors.Is(err, domain.ErrInvalidSettingKey) {
				t.Errorf("Set: expected ErrInvalidSettingKey, got %v", err)
			}
			if _, err := repo.Get(ctx, bad); !errors.Is(err, domain.ErrInvalidSettingKey) {
				t.Errorf("Get: expected ErrInvalidSettingKey, got %v", err)
			}
			if err := repo.Delete(ctx, bad); !errors.Is(err, domain.ErrInvalidSettingKey) {
				t.Errorf("Delete: expected ErrInvalidSettingKey, got %v", err)
			}
		})
	}
}

func TestSettingsRepository_Ping(t *testing.T) {
	for name, repo := range settingsRepos(t) {
		t.Run(name, func(t *testing.T) {
			if err := repo.Ping(context.Background()); err != nil {
				t.Errorf("Ping failed: %v", err)
			}
		})
	}
}

func TestSQLiteSettingsRepository_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	ctx := context.Background()

	repo, err := NewSQLiteSettingsRepository(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	repo.Set(ctx, domain.SettingProvider, "gemini")
	repo.Close()

	reopened, err := NewSQLiteSettingsRepository(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, domain.SettingProvider)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "gemini" {
		t.Errorf("Get = %q, want gemini", got)
	}
}
