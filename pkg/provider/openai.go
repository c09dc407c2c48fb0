package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// openAIAdapter speaks the chat-completions API.
type openAIAdapter struct{}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []contentPart
}

// contentPart is one part of a multimodal user message.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

const openAITextPath = "choices.0.message.content"

func (openAIAdapter) BuildRequest(ctx context.Context, cfg Config, instruction string, media Media) (*http.Request, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s", media.mimeType(), base64.StdEncoding.EncodeToString(media.Data))

	chatReq := chatRequest{
		Model: cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: instruction},
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: userPrompt},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
				},
			},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
		Stream:      false,
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(cfg.BaseURL, "/chat/completions"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	return httpReq, nil
}

func (openAIAdapter) ExtractText(body []byte) (string, error) {
	return extractString(OpenAI, body, openAITextPath)
}

// extractString reads a string field from a JSON body by gjson path.
func extractString(name Name, body []byte, path string) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", &EnvelopeError{Provider: name, Path: path, Reason: "response is not valid JSON"}
	}
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return "", &EnvelopeError{Provider: name, Path: path, Reason: "field missing"}
	}
	if res.Type != gjson.String {
		return "", &EnvelopeError{Provider: name, Path: path, Reason: "field is not a string"}
	}
	return res.String(), nil
}
