package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/teardown/internal/domain"
	"github.com/iconidentify/teardown/internal/service"
	"github.com/iconidentify/teardown/pkg/provider"
	"github.com/iconidentify/teardown/pkg/teardown"
)

// formOverhead is the allowance for non-file multipart fields and framing.
const formOverhead = 1 << 20

// Analyzer runs and records teardowns.
type Analyzer interface {
	Analyze(ctx context.Context, req service.AnalyzeRequest) (*domain.Analysis, error)
	Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error)
	List(ctx context.Context, limit int) ([]*domain.Analysis, error)
	Instruction() string
}

// AnalysisHandler handles teardown HTTP requests.
type AnalysisHandler struct {
	svc          Analyzer
	maxVideoSize int64
	logger       *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(svc Analyzer, maxVideoSize int64, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		svc:          svc,
		maxVideoSize: maxVideoSize,
		logger:       logger,
	}
}

// AnalysisResponse represents one run.
type AnalysisResponse struct {
	ID             string             `json:"id"`
	Status         string             `json:"status"`
	Provider       string             `json:"provider"`
	Model          string             `json:"model"`
	FileName       string             `json:"file_name,omitempty"`
	MIMEType       string             `json:"mime_type,omitempty"`
	SizeBytes      int64              `json:"size_bytes"`
	Metadata       *teardown.Metadata `json:"metadata"`
	Summary        *string            `json:"summary"`
	HTML           string             `json:"html"`
	MetadataSource string             `json:"metadata_source"`
	Warnings       []string           `json:"warnings,omitempty"`
	Error          string             `json:"error,omitempty"`
	DurationMS     int64              `json:"duration_ms"`
	StartedAt      time.Time          `json:"started_at"`
}

// ListResponse contains recent runs.
type ListResponse struct {
	Analyses []AnalysisResponse `json:"analyses"`
	Total    int                `json:"total"`
}

// FailureResponse is returned when the provider call fails.
type FailureResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
	ID     string `json:"id,omitempty"`
}

// PromptResponse carries the instruction text.
type PromptResponse struct {
	Instruction string `json:"instruction"`
}

func toResponse(a *domain.Analysis) AnalysisResponse {
	resp := AnalysisResponse{
		ID:         a.ID.String(),
		Status:     string(a.Status),
		Provider:   a.Provider,
		Model:      a.Model,
		FileName:   a.FileName,
		MIMEType:   a.MIMEType,
		SizeBytes:  a.SizeBytes,
		Warnings:   a.Warnings,
		Error:      a.Error,
		DurationMS: a.Duration().Milliseconds(),
		StartedAt:  a.StartedAt,
	}
	if a.Result != nil {
		resp.Metadata = a.Result.Metadata
		resp.Summary = a.Result.Summary
		resp.HTML = a.Result.Body
		resp.MetadataSource = string(a.Result.MetadataSource)
	}
	return resp
}

// Create handles POST /api/v1/analyses
//
// The request is multipart with the video in the "video" field and optional
// "provider", "model", "base_url" and "api_key" fields overriding the
// stored settings for this run.
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxVideoSize+formOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeTooLarge(w)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "video file is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxVideoSize {
		h.writeTooLarge(w)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, "failed to read video file")
		return
	}

	a, err := h.svc.Analyze(r.Context(), service.AnalyzeRequest{
		Media: provider.Media{
			Data:     data,
			MIMEType: header.Header.Get("Content-Type"),
		},
		FileName: header.Filename,
		Override: domain.Settings{
			Provider: r.FormValue("provider"),
			Model:    r.FormValue("model"),
			BaseURL:  r.FormValue("base_url"),
			APIKey:   r.FormValue("api_key"),
		},
	})
	if err != nil {
		h.writeAnalyzeError(w, a, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(a))
}

func (h *AnalysisHandler) writeTooLarge(w http.ResponseWriter) {
	writeError(w, http.StatusRequestEntityTooLarge,
		domain.ErrMediaTooLarge.Error()+" (max "+strconv.FormatInt(h.maxVideoSize>>20, 10)+" MB)")
}

func (h *AnalysisHandler) writeAnalyzeError(w http.ResponseWriter, a *domain.Analysis, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyMedia):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrUnknownProvider):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrAnalysisInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	resp := FailureResponse{Error: service.FailureMessage(err)}
	if a != nil {
		resp.ID = a.ID.String()
	}

	var te *provider.TransportError
	switch {
	case errors.As(err, &te):
		resp.Status = te.StatusCode
		writeJSON(w, http.StatusBadGateway, resp)
	case errors.Is(err, provider.ErrEnvelope):
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		h.logger.Error("analysis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// List handles GET /api/v1/analyses
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	runs, err := h.svc.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}

	resp := ListResponse{
		Analyses: make([]AnalysisResponse, 0, len(runs)),
		Total:    len(runs),
	}
	for _, a := range runs {
		resp.Analyses = append(resp.Analyses, toResponse(a))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/analyses/{analysisID}
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toResponse(a))
}

// Report handles GET /api/v1/analyses/{analysisID}/report and returns the
// HTML body on its own.
func (h *AnalysisHandler) Report(w http.ResponseWriter, r *http.Request) {
	a, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if a.Result == nil {
		writeError(w, http.StatusConflict, "analysis has no report")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, a.Result.Body)
}

func (h *AnalysisHandler) lookup(w http.ResponseWriter, r *http.Request) (*domain.Analysis, bool) {
	id := domain.AnalysisID(chi.URLParam(r, "analysisID"))

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAnalysisNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to get analysis")
		return nil, false
	}
	return a, true
}

// Prompt handles GET /api/v1/prompt
func (h *AnalysisHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PromptResponse{Instruction: h.svc.Instruction()})
}
