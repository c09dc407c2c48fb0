// Package provider sends a video and an instruction to a multimodal model API
// and returns the model's raw reply text.
//
// OpenAI-compatible and Gemini-compatible backends differ in where the key
// goes, how the request is shaped and where the text sits in the response.
// Each backend is an Adapter in a fixed table; callers only ever see a string.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Name identifies a provider backend.
type Name string

const (
	OpenAI Name = "openai"
	Gemini Name = "gemini"
)

// String returns the string representation of the Name.
func (n Name) String() string {
	return string(n)
}

// ErrUnknownProvider is returned for a provider name with no adapter.
var ErrUnknownProvider = errors.New("unknown provider")

// Generation settings shared by both backends.
const (
	Temperature = 0.7
	MaxTokens   = 2000

	// DefaultMIMEType is used when the media type is unknown.
	DefaultMIMEType = "video/mp4"

	// userPrompt accompanies the video in the OpenAI user message.
	userPrompt = "Please analyze this video file."

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 32 << 20
)

// Config selects the backend for one request. It is passed by value and
// never modified.
type Config struct {
	Provider Name
	Model    string
	BaseURL  string
	APIKey   string
}

// Media is the video sent with the instruction. The adapter only reads it.
type Media struct {
	Data     []byte
	MIMEType string
}

func (m Media) mimeType() string {
	if m.MIMEType == "" {
		return DefaultMIMEType
	}
	return m.MIMEType
}

// Adapter shapes requests and unwraps responses for one backend.
type Adapter interface {
	// BuildRequest creates the HTTP request carrying instruction and media.
	BuildRequest(ctx context.Context, cfg Config, instruction string, media Media) (*http.Request, error)
	// ExtractText pulls the generated text out of a 2xx response body.
	ExtractText(body []byte) (string, error)
}

var adapters = map[Name]Adapter{
	OpenAI: openAIAdapter{},
	Gemini: geminiAdapter{},
}

// Lookup returns the adapter registered for name.
func Lookup(name Name) (Adapter, error) {
	a, ok := adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return a, nil
}

// ParseName converts a user supplied provider string, case-insensitively.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := adapters[n]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
	return n, nil
}

// Names lists the supported providers in a stable order.
func Names() []Name {
	return []Name{OpenAI, Gemini}
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Timeout bounds one call. Zero means 5 minutes.
	Timeout time.Duration
	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client performs provider calls.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new provider client.
func NewClient(opts ClientOptions, logger *slog.Logger) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: hc,
		logger:     logger,
	}
}

// Invoke sends one request to the configured backend and returns the raw
// model text. It makes exactly one attempt. Failures are *TransportError or
// *EnvelopeError; an unknown provider fails before any I/O.
func (c *Client) Invoke(ctx context.Context, cfg Config, instruction string, media Media) (string, error) {
	adapter, err := Lookup(cfg.Provider)
	if err != nil {
		return "", err
	}

	req, err := adapter.BuildRequest(ctx, cfg, instruction, media)
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", cfg.Provider, err)
	}

	logger := c.logger.With("provider", cfg.Provider, "model", cfg.Model)
	logger.Debug("sending model request",
		"media_bytes", len(media.Data),
		"mime_type", media.mimeType(),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Provider: cfg.Provider, Err: redactError(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &TransportError{
			Provider:   cfg.Provider,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("read response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("model request rejected",
			"status", resp.StatusCode,
			"duration", time.Since(start),
		)
		return "", &TransportError{
			Provider:   cfg.Provider,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), 512),
		}
	}

	text, err := adapter.ExtractText(body)
	if err != nil {
		return "", err
	}

	logger.Debug("model request completed",
		"status", resp.StatusCode,
		"text_length", len(text),
		"duration", time.Since(start),
	)
	return text, nil
}

// endpoint joins base and path, dropping a trailing slash from base.
func endpoint(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
