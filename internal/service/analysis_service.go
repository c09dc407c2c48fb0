package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/iconidentify/teardown/internal/domain"
	"github.com/iconidentify/teardown/internal/repository"
	"github.com/iconidentify/teardown/pkg/provider"
	"github.com/iconidentify/teardown/pkg/teardown"
)

// MissingKeyWarning is attached to runs sent to a provider's default
// endpoint without an API key.
const MissingKeyWarning = "no API key is configured for the default endpoint; the request may fail"

// ModelInvoker sends one request to a model provider.
type ModelInvoker interface {
	Invoke(ctx context.Context, cfg provider.Config, instruction string, media provider.Media) (string, error)
}

// AnalysisService runs teardowns: resolve settings, call the model, parse
// the reply and record the run.
type AnalysisService struct {
	invoker     ModelInvoker
	settings    *SettingsService
	history     repository.AnalysisRepository
	parser      *teardown.Parser
	instruction string
	logger      *slog.Logger

	// busy guards against overlapping runs.
	busy atomic.Bool
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(
	invoker ModelInvoker,
	settings *SettingsService,
	history repository.AnalysisRepository,
	parser *teardown.Parser,
	instruction string,
	logger *slog.Logger,
) *AnalysisService {
	if parser == nil {
		parser = teardown.NewParser()
	}
	if instruction == "" {
		instruction = teardown.Instruction
	}
	return &AnalysisService{
		invoker:     invoker,
		settings:    settings,
		history:     history,
		parser:      parser,
		instruction: instruction,
		logger:      logger,
	}
}

// AnalyzeRequest is one video to tear down.
type AnalyzeRequest struct {
	Media    provider.Media
	FileName string
	// Override replaces stored settings for this run only.
	Override domain.Settings
}

// Analyze runs one teardown. Only one run may be in flight at a time;
// a concurrent call returns domain.ErrAnalysisInProgress.
//
// On a provider failure the returned Analysis is marked failed and the
// error wraps the provider error.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*domain.Analysis, error) {
	if len(req.Media.Data) == 0 {
		return nil, domain.ErrEmptyMedia
	}

	if !s.busy.CompareAndSwap(false, true) {
		return nil, domain.ErrAnalysisInProgress
	}
	defer s.busy.Store(false)

	eff, err := s.settings.Effective(ctx, req.Override)
	if err != nil {
		return nil, fmt.Errorf("resolve settings: %w", err)
	}

	media := provider.Media{
		Data:     req.Media.Data,
		MIMEType: DetectMIMEType(req.Media.Data, req.Media.MIMEType),
	}

	a := domain.NewAnalysis(domain.AnalysisID(uuid.New().String()), eff.Provider, eff.Model)
	a.FileName = req.FileName
	a.MIMEType = media.MIMEType
	a.SizeBytes = int64(len(media.Data))

	logger := s.logger.With(
		"analysis_id", a.ID,
		"provider", eff.Provider,
		"model", eff.Model,
	)

	if eff.APIKey == "" && s.settings.UsesDefaultEndpoint(eff) {
		logger.Warn("no API key configured for default endpoint, continuing anyway")
		a.AddWarning(MissingKeyWarning)
	}

	s.save(ctx, a, logger)
	logger.Info("analysis started",
		"file", a.FileName,
		"mime_type", a.MIMEType,
		"size_bytes", a.SizeBytes,
	)

	raw, err := s.invoker.Invoke(ctx, eff.ProviderConfig(), s.instruction, media)
	if err != nil {
		a.MarkFailed(FailureMessage(err))
		// the run is recorded even if the caller went away
		s.save(context.WithoutCancel(ctx), a, logger)
		logger.Error("analysis failed", "error", err, "duration", a.Duration())
		return a, domain.NewAnalysisError(a.ID, "invoke model", err)
	}

	result := s.parser.Parse(raw)
	a.MarkCompleted(result)
	s.save(ctx, a, logger)

	logger.Info("analysis completed",
		"metadata_source", result.MetadataSource,
		"has_summary", result.Summary != nil,
		"body_length", len(result.Body),
		"duration", a.Duration(),
	)
	if !result.HasMetadata() {
		logger.Warn("model reply carried no usable metadata")
	}

	return a, nil
}

func (s *AnalysisService) save(ctx context.Context, a *domain.Analysis, logger *slog.Logger) {
	if err := s.history.Save(ctx, a); err != nil {
		logger.Warn("failed to record analysis", "error", err)
	}
}

// Get returns a recorded run.
func (s *AnalysisService) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	return s.history.Get(ctx, id)
}

// List returns recent runs, newest first.
func (s *AnalysisService) List(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	return s.history.List(ctx, limit)
}

// Stats returns run counts.
func (s *AnalysisService) Stats(ctx context.Context) (*repository.AnalysisStats, error) {
	return s.history.Stats(ctx)
}

// InProgress reports whether a run is currently in flight.
func (s *AnalysisService) InProgress() bool {
	return s.busy.Load()
}

// Instruction returns the instruction text sent with every run.
func (s *AnalysisService) Instruction() string {
	return s.instruction
}

// FailureMessage renders a provider error the way users see it:
// "HTTP <status>" for rejected requests and a fixed message for replies
// without the expected text.
func FailureMessage(err error) string {
	var te *provider.TransportError
	if errors.As(err, &te) && te.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d", te.StatusCode)
	}
	if errors.Is(err, provider.ErrEnvelope) {
		return "API response format error"
	}
	return err.Error()
}

// DetectMIMEType picks the media type sent to the provider. A declared
// type wins unless it is empty or generic; otherwise the content is
// sniffed. Returns "" when nothing video-like is found, leaving the
// provider default in place.
func DetectMIMEType(data []byte, declared string) string {
	declared = strings.TrimSpace(strings.ToLower(declared))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		t := m.String()
		if strings.HasPrefix(t, "video/") || strings.HasPrefix(t, "audio/") {
			return detected.String()
		}
	}
	return ""
}
