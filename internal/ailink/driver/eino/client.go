// Package eino adapts cloudwego/eino chat models to the ailink driver interface.
package eino

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/aptoseidon/aptoseidon/internal/ailink/content"
	"github.com/aptoseidon/aptoseidon/internal/ailink/driver"
)

// ModelFactory builds a chat model for one model name.
type ModelFactory func(ctx context.Context, baseURL, apiKey, modelName string) (model.ChatModel, error)

// Client drives any OpenAI-compatible endpoint through an eino ChatModel.
// Chat models are created lazily, one per model name.
type Client struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Factory ModelFactory

	mu     sync.Mutex
	models map[string]model.ChatModel
}

// NewClient returns a client backed by the eino-ext openai chat model.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSpace(baseURL),
		APIKey:  strings.TrimSpace(apiKey),
		Factory: newOpenAIModel,
	}
}

func newOpenAIModel(ctx context.Context, baseURL, apiKey, modelName string) (model.ChatModel, error) {
	return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   modelName,
	})
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "eino"
}

// Complete runs one Generate call.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("eino client not configured")
	}
	if req == nil || strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	cm, err := c.chatModel(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	started := time.Now()
	msg, err := cm.Generate(ctx, toSchemaMessages(req.Messages), generateOptions(req)...)
	if err != nil {
		driver.TraceCall(c.Name(), req, nil, 0, "", started, err)
		return nil, fmt.Errorf("eino generate: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("eino generate: empty message")
	}

	resp := &driver.Response{
		Content: []content.ContentBlock{{Type: content.ContentTypeText, Text: msg.Content}},
	}
	if meta := msg.ResponseMeta; meta != nil {
		resp.FinishReason = meta.FinishReason
		if meta.Usage != nil {
			resp.Usage = &driver.Usage{
				PromptTokens:     meta.Usage.PromptTokens,
				CompletionTokens: meta.Usage.CompletionTokens,
				TotalTokens:      meta.Usage.TotalTokens,
			}
		}
	}
	driver.TraceCall(c.Name(), req, nil, 0, msg.Content, started, nil)
	return resp, nil
}

func (c *Client) chatModel(ctx context.Context, name string) (model.ChatModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cm, ok := c.models[name]; ok {
		return cm, nil
	}
	factory := c.Factory
	if factory == nil {
		factory = newOpenAIModel
	}
	cm, err := factory(ctx, c.BaseURL, c.APIKey, name)
	if err != nil {
		return nil, fmt.Errorf("init eino model %s: %w", name, err)
	}
	if c.models == nil {
		c.models = map[string]model.ChatModel{}
	}
	c.models[name] = cm
	return cm, nil
}

func toSchemaMessages(messages []content.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		role := schema.User
		switch msg.Role {
		case content.RoleSystem:
			role = schema.System
		case content.RoleAssistant:
			role = schema.Assistant
		}
		out = append(out, &schema.Message{Role: role, Content: content.JoinText(msg.Content)})
	}
	return out
}

func generateOptions(req *driver.Request) []model.Option {
	var opts []model.Option
	if req.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*req.Temperature)))
	}
	if req.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*req.MaxTokens))
	}
	return opts
}
