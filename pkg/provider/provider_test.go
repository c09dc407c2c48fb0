package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient() *Client {
	return NewClient(ClientOptions{Timeout: 5 * time.Second}, testLogger())
}

var testMedia = Media{Data: []byte("fake-video-bytes"), MIMEType: "video/webm"}

func TestInvoke_OpenAI_RequestShape(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.URL.RawQuery)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"<!-- META: {} -->hello"}}]}`))
	}))
	defer server.Close()

	text, err := testClient().Invoke(context.Background(), Config{
		Provider: OpenAI,
		Model:    "gpt-4o",
		BaseURL:  server.URL + "/v1/",
		APIKey:   "sk-test",
	}, "SYSTEM", testMedia)

	require.NoError(t, err)
	assert.Equal(t, "<!-- META: {} -->hello", text)

	assert.Equal(t, "gpt-4o", got["model"])
	assert.Equal(t, 0.7, got["temperature"])
	assert.Equal(t, float64(2000), got["max_tokens"])
	assert.Equal(t, false, got["stream"])

	messages := got["messages"].([]any)
	require.Len(t, messages, 2)

	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, "SYSTEM", system["content"])

	user := messages[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	parts := user["content"].([]any)
	require.Len(t, parts, 2)

	textPart := parts[0].(map[string]any)
	assert.Equal(t, "text", textPart["type"])
	assert.Equal(t, "Please analyze this video file.", textPart["text"])

	imagePart := parts[1].(map[string]any)
	assert.Equal(t, "image_url", imagePart["type"])
	wantURL := "data:video/webm;base64," + base64.StdEncoding.EncodeToString(testMedia.Data)
	assert.Equal(t, wantURL, imagePart["image_url"].(map[string]any)["url"])
}

func TestInvoke_Gemini_RequestShape(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))
		assert.Empty(t, r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"gemini says hi"}],"role":"model"}}]}`))
	}))
	defer server.Close()

	text, err := testClient().Invoke(context.Background(), Config{
		Provider: Gemini,
		Model:    "gemini-2.5-flash",
		BaseURL:  server.URL,
		APIKey:   "g-key",
	}, "SYSTEM", testMedia)

	require.NoError(t, err)
	assert.Equal(t, "gemini says hi", text)

	contents := got["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, map[string]any{"text": "SYSTEM"}, parts[0])
	assert.Equal(t, map[string]any{
		"inlineData": map[string]any{
			"mimeType": "video/webm",
			"data":     base64.StdEncoding.EncodeToString(testMedia.Data),
		},
	}, parts[1])

	assert.Equal(t, map[string]any{
		"temperature":     0.7,
		"maxOutputTokens": float64(2000),
	}, got["generationConfig"])
}

func TestInvoke_DefaultMIMEType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"mimeType":"video/mp4"`)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	_, err := testClient().Invoke(context.Background(), Config{
		Provider: Gemini, Model: "m", BaseURL: server.URL,
	}, "x", Media{Data: []byte{1, 2, 3}})
	require.NoError(t, err)
}

func TestInvoke_TransportErrorOnStatus(t *testing.T) {
	tests := []struct {
		name     string
		provider Name
		status   int
	}{
		{name: "openai unauthorized", provider: OpenAI, status: http.StatusUnauthorized},
		{name: "openai rate limited", provider: OpenAI, status: http.StatusTooManyRequests},
		{name: "gemini bad request", provider: Gemini, status: http.StatusBadRequest},
		{name: "gemini outage", provider: Gemini, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer server.Close()

			_, err := testClient().Invoke(context.Background(), Config{
				Provider: tt.provider, Model: "m", BaseURL: server.URL, APIKey: "k",
			}, "x", testMedia)

			require.Error(t, err)
			var te *TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.status, te.StatusCode)
			assert.Equal(t, tt.provider, te.Provider)
			assert.Contains(t, te.Body, "nope")
			assert.True(t, errors.Is(err, ErrTransport))
			assert.False(t, errors.Is(err, ErrEnvelope))
			assert.Equal(t, 1, calls, "no retries")
		})
	}
}

func TestInvoke_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	_, err := testClient().Invoke(context.Background(), Config{
		Provider: Gemini, Model: "m", BaseURL: baseURL, APIKey: "super-secret",
	}, "x", testMedia)

	require.Error(t, err)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.StatusCode)
	assert.NotContains(t, err.Error(), "super-secret")
}

func TestInvoke_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient().Invoke(ctx, Config{
		Provider: OpenAI, Model: "m", BaseURL: server.URL,
	}, "x", testMedia)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestInvoke_EnvelopeErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider Name
		body     string
	}{
		{name: "openai empty choices", provider: OpenAI, body: `{"choices":[]}`},
		{name: "openai no message", provider: OpenAI, body: `{"choices":[{"finish_reason":"stop"}]}`},
		{name: "openai null content", provider: OpenAI, body: `{"choices":[{"message":{"content":null}}]}`},
		{name: "openai not json", provider: OpenAI, body: `<html>gateway</html>`},
		{name: "gemini no candidates", provider: Gemini, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{name: "gemini no parts", provider: Gemini, body: `{"candidates":[{"content":{"parts":[]}}]}`},
		{name: "gemini non-text part", provider: Gemini, body: `{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := testClient().Invoke(context.Background(), Config{
				Provider: tt.provider, Model: "m", BaseURL: server.URL,
			}, "x", testMedia)

			require.Error(t, err)
			var ee *EnvelopeError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, tt.provider, ee.Provider)
			assert.True(t, errors.Is(err, ErrEnvelope))
			assert.False(t, errors.Is(err, ErrTransport))
		})
	}
}

func TestInvoke_EmptyContentIsNotAnEnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	}))
	defer server.Close()

	text, err := testClient().Invoke(context.Background(), Config{
		Provider: OpenAI, Model: "m", BaseURL: server.URL,
	}, "x", testMedia)

	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestInvoke_UnknownProvider(t *testing.T) {
	_, err := testClient().Invoke(context.Background(), Config{Provider: "anthropic"}, "x", testMedia)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestParseName(t *testing.T) {
	tests := []struct {
		in      string
		want    Name
		wantErr bool
	}{
		{in: "openai", want: OpenAI},
		{in: "Gemini", want: Gemini},
		{in: "  OPENAI ", want: OpenAI},
		{in: "", wantErr: true},
		{in: "claude", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseName(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransportError_Message(t *testing.T) {
	err := &TransportError{Provider: OpenAI, StatusCode: 401, Body: "bad key"}
	assert.Equal(t, "openai API error (status 401): bad key", err.Error())

	err = &TransportError{Provider: Gemini, Err: errors.New("dial tcp: refused")}
	assert.Equal(t, "gemini request failed: dial tcp: refused", err.Error())
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://example.com/v1beta/models/m:generateContent?key=secret")
	assert.NotContains(t, got, "secret")
	assert.Contains(t, got, "key=REDACTED")

	assert.Equal(t, "https://example.com/v1", redactURL("https://example.com/v1"))
}

func TestEndpointTrimsTrailingSlash(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", endpoint("https://api.openai.com/v1/", "/chat/completions"))
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", endpoint("https://api.openai.com/v1", "/chat/completions"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.True(t, strings.HasSuffix(truncate(strings.Repeat("x", 1000), 512), "..."))
}
