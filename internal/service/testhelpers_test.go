package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/iconidentify/teardown/internal/repository"
	"github.com/iconidentify/teardown/pkg/provider"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockInvoker is a test implementation of ModelInvoker.
type mockInvoker struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   []provider.Config
	media   []provider.Media
	gate    chan struct{} // when set, Invoke blocks until closed
	entered chan struct{}
}

func (m *mockInvoker) Invoke(ctx context.Context, cfg provider.Config, instruction string, media provider.Media) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, cfg)
	m.media = append(m.media, media)
	gate, entered := m.gate, m.entered
	m.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.reply, m.err
}

func (m *mockInvoker) lastConfig() provider.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

func newTestSettings(defaultProvider provider.Name) (*SettingsService, *repository.InMemorySettingsRepository) {
	repo := repository.NewInMemorySettingsRepository()
	return NewSettingsService(repo, nil, defaultProvider, testLogger()), repo
}
