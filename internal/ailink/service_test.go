package ailink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
)

type capturedRequest struct {
	Model          string `json:"model"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestService(t *testing.T, handler http.HandlerFunc, budget int) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	prompts, err := prompt.DefaultRegistry("")
	require.NoError(t, err)

	svc := NewService(Config{
		DefaultProvider: "openai",
		InputBudget:     budget,
		MaxRetries:      2,
		Providers: map[string]ProviderInstanceConfig{
			"openai": {
				Enabled:     true,
				AIProvider:  "openai",
				BaseURL:     server.URL,
				Models:      map[string]string{"default": "gpt-4o-mini"},
				Credentials: []CredentialConfig{{Enabled: true, Label: "primary", APIKey: "sk-test"}},
			},
		},
	}, prompts)
	svc.sleep = func(context.Context, time.Duration) error { return nil }
	return svc
}

func writeCompletion(w http.ResponseWriter, text string) {
	payload := map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"content": text}, "finish_reason": "stop"}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func TestCompleteJSONStripsFenceAndSetsFormat(t *testing.T) {
	var got capturedRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "```json\n{\"risk_score\": 0.3, \"risk_flags\": []}\n```")
	}, 3000)

	out, err := svc.CompleteJSON(context.Background(), prompt.SlugRisk, "Website Content: hello")
	require.NoError(t, err)
	require.JSONEq(t, `{"risk_score":0.3,"risk_flags":[]}`, out)

	require.Equal(t, "gpt-4o-mini", got.Model)
	require.NotNil(t, got.ResponseFormat)
	require.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Contains(t, got.Messages[0].Content, "risk_score")
	require.Equal(t, "Website Content: hello", got.Messages[1].Content)
}

func TestCompleteJSONRejectsNonJSON(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "I think the risk is moderate.")
	}, 3000)

	_, err := svc.CompleteJSON(context.Background(), prompt.SlugRisk, "x")
	var rawErr *RawResponseError
	require.ErrorAs(t, err, &rawErr)
	require.Contains(t, string(rawErr.Raw), "moderate")
}

func TestCompleteTextTruncatesInput(t *testing.T) {
	var got capturedRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "  Three neutral sentences.  ")
	}, 10)

	out, err := svc.CompleteText(context.Background(), prompt.SlugNarrative, strings.Repeat("a", 25))
	require.NoError(t, err)
	require.Equal(t, "Three neutral sentences.", out)
	require.Nil(t, got.ResponseFormat)
	require.Equal(t, strings.Repeat("a", 10)+"...[TRUNCATED]", got.Messages[1].Content)
}

func TestCompleteRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeCompletion(w, "Summary.")
	}, 3000)

	out, err := svc.CompleteText(context.Background(), prompt.SlugExecutiveSummary, "Risk Score: 0.2")
	require.NoError(t, err)
	require.Equal(t, "Summary.", out)
	require.Equal(t, int32(2), calls.Load())
}

func TestCompleteMapsProviderErrors(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, 3000)

	_, err := svc.CompleteText(context.Background(), prompt.SlugNarrative, "x")
	var cerr *CompletionError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "AILINK_PROVIDER_AUTH", cerr.Code)
}

func TestCompleteUnknownPrompt(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {}, 3000)
	_, err := svc.CompleteText(context.Background(), "missing", "x")
	require.ErrorContains(t, err, "not found")
}

func TestTruncateInputCountsCharacters(t *testing.T) {
	require.Equal(t, "héllo", TruncateInput("héllo", 5))
	require.Equal(t, "hé...[TRUNCATED]", TruncateInput("héllo", 2))
	require.Equal(t, "abc", TruncateInput("abc", 0))
}

func TestStripCodeFence(t *testing.T) {
	require.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, StripCodeFence("```{\"a\":1}```"))
	require.Equal(t, `{"a":1}`, StripCodeFence(` {"a":1} `))
}
