package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// geminiAdapter speaks the generateContent API.
type geminiAdapter struct{}

type generateRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

// geminiPart holds either text or inline data.
type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

const geminiTextPath = "candidates.0.content.parts.0.text"

func (geminiAdapter) BuildRequest(ctx context.Context, cfg Config, instruction string, media Media) (*http.Request, error) {
	genReq := generateRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: instruction},
				{InlineData: &inlineData{
					MimeType: media.mimeType(),
					Data:     base64.StdEncoding.EncodeToString(media.Data),
				}},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:     Temperature,
			MaxOutputTokens: MaxTokens,
		},
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	path := "/v1beta/models/" + url.PathEscape(cfg.Model) + ":generateContent?key=" + url.QueryEscape(cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(cfg.BaseURL, path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	return httpReq, nil
}

func (geminiAdapter) ExtractText(body []byte) (string, error) {
	return extractString(Gemini, body, geminiTextPath)
}
