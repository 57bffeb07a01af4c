package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/aptoseidon/aptoseidon/internal/ailink/content"
	"github.com/aptoseidon/aptoseidon/internal/ailink/driver"
)

type fakeChatModel struct {
	got   []*schema.Message
	reply *schema.Message
	err   error
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.got = input
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func (f *fakeChatModel) BindTools([]*schema.ToolInfo) error { return nil }

func TestCompleteConvertsMessagesAndCachesModel(t *testing.T) {
	fake := &fakeChatModel{reply: &schema.Message{
		Role:    schema.Assistant,
		Content: `{"has_conflict":false,"reason":""}`,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: "stop",
			Usage:        &schema.TokenUsage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12},
		},
	}}
	builds := 0
	client := NewClient("http://llm.local/v1", "key")
	client.Factory = func(_ context.Context, baseURL, apiKey, name string) (model.ChatModel, error) {
		builds++
		require.Equal(t, "http://llm.local/v1", baseURL)
		require.Equal(t, "gpt-4o-mini", name)
		return fake, nil
	}

	req := &driver.Request{
		Model: "gpt-4o-mini",
		Messages: []content.Message{
			content.TextMessage(content.RoleSystem, "compare"),
			content.TextMessage(content.RoleUser, "rules"),
		},
	}
	for range 2 {
		resp, err := client.Complete(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, `{"has_conflict":false,"reason":""}`, resp.Text())
		require.Equal(t, "stop", resp.FinishReason)
		require.Equal(t, 12, resp.Usage.TotalTokens)
	}

	require.Equal(t, 1, builds)
	require.Len(t, fake.got, 2)
	require.Equal(t, schema.System, fake.got[0].Role)
	require.Equal(t, schema.User, fake.got[1].Role)
}

func TestCompletePropagatesGenerateError(t *testing.T) {
	client := NewClient("", "key")
	client.Factory = func(context.Context, string, string, string) (model.ChatModel, error) {
		return &fakeChatModel{err: errors.New("upstream 500")}, nil
	}

	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "m",
		Messages: []content.Message{content.TextMessage(content.RoleUser, "x")},
	})
	require.ErrorContains(t, err, "upstream 500")
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), &driver.Request{Model: "m"})
	require.ErrorContains(t, err, "api key")
}
