package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aptoseidon/aptoseidon/internal/ailink/driver"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	// maxResponseBytes bounds a completion body read into memory.
	maxResponseBytes = 4 << 20
)

// Client calls an OpenAI-compatible chat completions endpoint over plain
// HTTP. Set BaseURL for OpenRouter, vLLM or other compatible servers.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func NewClient(baseURL, apiKey string) *Client {
	c := &Client{BaseURL: strings.TrimSpace(baseURL), APIKey: strings.TrimSpace(apiKey)}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	return c
}

func (c *Client) Name() string { return "openai" }

// Complete sends one chat completion. Non-2xx replies return a
// *driver.ProviderError.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, err := newChatRequest(req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	started := time.Now()
	status, respBody, err := c.post(ctx, body)
	if err != nil {
		driver.TraceCall(c.Name(), req, body, status, "", started, err)
		return nil, err
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		perr := &driver.ProviderError{Provider: c.Name(), StatusCode: status, Message: errorMessage(respBody), RawResponse: respBody}
		driver.TraceCall(c.Name(), req, body, status, "", started, perr)
		return nil, perr
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		driver.TraceCall(c.Name(), req, body, status, string(respBody), started, err)
		return nil, fmt.Errorf("decode response: %w", err)
	}
	out, err := parsed.toDriver()
	driver.TraceCall(c.Name(), req, body, status, out.Text(), started, err)
	return out, err
}

func (c *Client) post(ctx context.Context, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // read-only body

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}
