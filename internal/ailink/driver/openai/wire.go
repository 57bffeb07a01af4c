package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/ailink/content"
	"github.com/aptoseidon/aptoseidon/internal/ailink/driver"
)

// Chat completions wire format.
type (
	chatRequest struct {
		Model          string                 `json:"model"`
		Messages       []chatMessage          `json:"messages"`
		ResponseFormat *driver.ResponseFormat `json:"response_format,omitempty"`
		Temperature    *float64               `json:"temperature,omitempty"`
		MaxTokens      *int                   `json:"max_tokens,omitempty"`
	}

	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatResponse struct {
		Choices []struct {
			Message      chatMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		} `json:"choices"`
		Usage *driver.Usage `json:"usage,omitempty"`
	}

	apiError struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
)

func newChatRequest(req *driver.Request) (*chatRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	out := &chatRequest{
		Model:       req.Model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type != "" {
		out.ResponseFormat = req.ResponseFormat
	}
	for _, msg := range req.Messages {
		for _, block := range msg.Content {
			if block.Type != content.ContentTypeText && block.Type != content.ContentTypeJSON {
				return nil, fmt.Errorf("unsupported content type: %s", block.Type)
			}
		}
		out.Messages = append(out.Messages, chatMessage{Role: msg.Role, Content: content.JoinText(msg.Content)})
	}
	return out, nil
}

func (r *chatResponse) toDriver() (*driver.Response, error) {
	if len(r.Choices) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}
	first := r.Choices[0]
	return &driver.Response{
		Content:      []content.ContentBlock{{Type: content.ContentTypeText, Text: first.Message.Content}},
		FinishReason: first.FinishReason,
		Usage:        r.Usage,
	}, nil
}

// errorMessage prefers the structured error message over the raw body.
func errorMessage(body []byte) string {
	var parsed apiError
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}
