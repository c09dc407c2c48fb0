package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/teardown/internal/api/handler"
	mw "github.com/iconidentify/teardown/internal/api/middleware"
)

// RequestTimeout bounds a whole request, including the model call.
const RequestTimeout = 10 * time.Minute

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	analysisHandler *handler.AnalysisHandler,
	settingsHandler *handler.SettingsHandler,
	healthHandler *handler.HealthHandler,
	uiHandler *handler.UIHandler,
	apiKey string,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(mw.CORS)

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// Web UI (no auth - the UI sends the API key itself)
	r.Get("/", uiHandler.Index)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(apiKey))

		r.Get("/stats", healthHandler.Stats)
		r.Get("/prompt", analysisHandler.Prompt)

		r.Post("/analyses", analysisHandler.Create)
		r.Get("/analyses", analysisHandler.List)
		r.Get("/analyses/{analysisID}", analysisHandler.Get)
		r.Get("/analyses/{analysisID}/report", analysisHandler.Report)

		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Update)
		r.Get("/settings/defaults", settingsHandler.Defaults)
	})

	return r
}
