// Package gemini implements the ailink driver on the Google GenAI SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/aptoseidon/aptoseidon/internal/ailink/content"
	"github.com/aptoseidon/aptoseidon/internal/ailink/driver"
)

// Client calls the Gemini API. The SDK client is created on first use.
type Client struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	once    sync.Once
	sdk     *genai.Client
	initErr error
}

// NewClient returns a Gemini driver for the given key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{BaseURL: strings.TrimSpace(baseURL), APIKey: strings.TrimSpace(apiKey)}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "gemini"
}

func (c *Client) client(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:  c.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if c.BaseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.BaseURL}
		}
		c.sdk, c.initErr = genai.NewClient(ctx, cfg)
	})
	return c.sdk, c.initErr
}

// Complete sends one GenerateContent call.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if req == nil || strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	sdk, err := c.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	contents, cfg := buildRequest(req)
	started := time.Now()
	resp, err := sdk.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		driver.TraceCall(c.Name(), req, nil, 0, "", started, err)
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	text := resp.Text()
	out := &driver.Response{
		Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: text}},
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		out.FinishReason = strings.ToLower(string(resp.Candidates[0].FinishReason))
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &driver.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	driver.TraceCall(c.Name(), req, nil, 0, text, started, nil)
	return out, nil
}

func buildRequest(req *driver.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	system, rest := content.SplitSystem(req.Messages)

	contents := make([]*genai.Content, 0, len(rest))
	for _, msg := range rest {
		role := "user"
		if msg.Role == content.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: content.JoinText(msg.Content)}},
		})
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.WantsJSON() {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*req.MaxTokens)
	}
	return contents, cfg
}
