package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/teardown/internal/domain"
	"github.com/iconidentify/teardown/internal/repository"
	"github.com/iconidentify/teardown/internal/service"
	"github.com/iconidentify/teardown/pkg/provider"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeInvoker is a test implementation of service.ModelInvoker.
type fakeInvoker struct {
	reply string
	err   error
	last  provider.Config
	media provider.Media
}

func (f *fakeInvoker) Invoke(ctx context.Context, cfg provider.Config, instruction string, media provider.Media) (string, error) {
	f.last = cfg
	f.media = media
	return f.reply, f.err
}

// testEnv bundles real services backed by in-memory stores.
type testEnv struct {
	invoker  *fakeInvoker
	settings *service.SettingsService
	analyses *service.AnalysisService
	repo     *repository.InMemorySettingsRepository
}

func newTestEnv() *testEnv {
	inv := &fakeInvoker{}
	repo := repository.NewInMemorySettingsRepository()
	settings := service.NewSettingsService(repo, nil, provider.OpenAI, testLogger())
	analyses := service.NewAnalysisService(
		inv,
		settings,
		repository.NewInMemoryAnalysisRepository(10),
		nil,
		"",
		testLogger(),
	)
	return &testEnv{invoker: inv, settings: settings, analyses: analyses, repo: repo}
}

// multipartRequest builds a POST with an optional video part and form fields.
func multipartRequest(t *testing.T, video []byte, contentType string, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if video != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="video"; filename="clip.mp4"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		part.Write(video)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// withURLParam adds a chi route parameter to the request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// failingStore is a settings store whose reads always fail.
type failingStore struct{}

func (failingStore) Effective(ctx context.Context, o domain.Settings) (domain.Settings, error) {
	return domain.Settings{}, errors.New("disk on fire")
}

func (failingStore) Stored(ctx context.Context) (domain.Settings, error) {
	return domain.Settings{}, errors.New("disk on fire")
}

func (failingStore) Save(ctx context.Context, u service.SettingsUpdate) error {
	return errors.New("disk on fire")
}

func (failingStore) DefaultProvider() provider.Name { return provider.OpenAI }

// pingFunc adapts a function to Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func analyzeRequest(data string) service.AnalyzeRequest {
	return service.AnalyzeRequest{Media: provider.Media{Data: []byte(data)}}
}
