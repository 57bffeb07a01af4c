package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aptoseidon/aptoseidon/internal/ailink/content"
	"github.com/aptoseidon/aptoseidon/internal/ailink/driver"
)

func userOnly(text string) []content.Message {
	return []content.Message{content.TextMessage(content.RoleUser, text)}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userOnly("hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClientRequiresModel(t *testing.T) {
	client := NewClient("", "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{Messages: userOnly("hi")})
	require.ErrorContains(t, err, "model is required")
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload struct {
			Model          string            `json:"model"`
			Messages       []chatMessage     `json:"messages"`
			ResponseFormat map[string]string `json:"response_format"`
			Temperature    float64           `json:"temperature"`
			MaxTokens      int               `json:"max_tokens"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, "gpt-4o-mini", payload.Model)
		require.Len(t, payload.Messages, 2)
		require.Equal(t, "system", payload.Messages[0].Role)
		require.Equal(t, "json_object", payload.ResponseFormat["type"])
		require.InDelta(t, 0.2, payload.Temperature, 1e-9)
		require.Equal(t, 1000, payload.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"risk_score\":0.3}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	temperature := 0.2
	maxTokens := 1000
	resp, err := client.Complete(context.Background(), &driver.Request{
		Model: "gpt-4o-mini",
		Messages: []content.Message{
			content.TextMessage(content.RoleSystem, "sys"),
			content.TextMessage(content.RoleUser, "usr"),
		},
		ResponseFormat: &driver.ResponseFormat{Type: driver.FormatJSON},
		Temperature:    &temperature,
		MaxTokens:      &maxTokens,
	})
	require.NoError(t, err)
	require.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 3, resp.Usage.TotalTokens)
	require.JSONEq(t, `{"risk_score":0.3}`, resp.Text())
}

func TestClientErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userOnly("hi")})
	require.Error(t, err)

	var perr *driver.ProviderError
	require.ErrorAs(t, err, &perr)
	require.True(t, perr.RateLimited())
	require.Contains(t, err.Error(), "status 429")
	require.Contains(t, err.Error(), "slow down")
}

func TestClientErrorsOnEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userOnly("hi")})
	require.ErrorContains(t, err, "empty response choices")
}

func TestClientUsesStructuredErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userOnly("hi")})
	var perr *driver.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	require.Equal(t, "Incorrect API key provided", perr.Message)
	require.False(t, perr.RateLimited())
}

func TestNewChatRequestRejectsBinaryContent(t *testing.T) {
	_, err := newChatRequest(&driver.Request{
		Model:    "m",
		Messages: []content.Message{{Role: content.RoleUser, Content: []content.ContentBlock{{Type: "image"}}}},
	})
	require.ErrorContains(t, err, "unsupported content type")

	_, err = newChatRequest(&driver.Request{Model: "m"})
	require.ErrorContains(t, err, "messages are required")
}
