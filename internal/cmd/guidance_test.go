package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptoseidon/aptoseidon/internal/ailink"
	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
)

func configuredAILink() ailink.Config {
	return ailink.Config{
		DefaultProvider: "myai",
		Providers: map[string]ailink.ProviderInstanceConfig{
			"myai": {
				Enabled:     true,
				AIProvider:  "openai",
				Credentials: []ailink.CredentialConfig{{Enabled: true, APIKey: "sk-test"}},
			},
		},
	}
}

func TestIsAIBackendConfigured(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ailink.Config
		expected bool
	}{
		{name: "empty config", cfg: ailink.Config{}},
		{
			name: "disabled provider",
			cfg: ailink.Config{Providers: map[string]ailink.ProviderInstanceConfig{
				"p": {Enabled: false, Credentials: []ailink.CredentialConfig{{Enabled: true, APIKey: "sk"}}},
			}},
		},
		{
			name: "disabled credential",
			cfg: ailink.Config{Providers: map[string]ailink.ProviderInstanceConfig{
				"p": {Enabled: true, Credentials: []ailink.CredentialConfig{{Enabled: false, APIKey: "sk"}}},
			}},
		},
		{
			name: "whitespace key",
			cfg: ailink.Config{Providers: map[string]ailink.ProviderInstanceConfig{
				"p": {Enabled: true, Credentials: []ailink.CredentialConfig{{Enabled: true, APIKey: "   "}}},
			}},
		},
		{name: "configured", cfg: configuredAILink(), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isAIBackendConfigured(tt.cfg))
		})
	}
}

func TestShowAgentGuidanceOnce(t *testing.T) {
	resetAgentGuidance()
	t.Cleanup(resetAgentGuidance)

	var buf bytes.Buffer
	showAgentGuidance(ailink.Config{}, &buf)
	out := buf.String()
	assert.Contains(t, out, "no AI backend configured")
	assert.Contains(t, out, "APTOSEIDON_AILINK_PROVIDERS_MYAI_CREDENTIALS_0_API_KEY")

	buf.Reset()
	showAgentGuidance(ailink.Config{}, &buf)
	assert.Empty(t, buf.String())
}

func TestShowAgentGuidanceSilentWhenConfigured(t *testing.T) {
	resetAgentGuidance()
	t.Cleanup(resetAgentGuidance)

	var buf bytes.Buffer
	showAgentGuidance(configuredAILink(), &buf)
	assert.Empty(t, buf.String())
}

func TestWritePromptTable(t *testing.T) {
	prompts, err := prompt.DefaultRegistry("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writePromptTable(&buf, prompts.List(), ailink.NewRegistry(configuredAILink())))
	out := buf.String()
	for _, slug := range prompt.AgentSlugs() {
		assert.Contains(t, out, slug)
	}

	buf.Reset()
	require.NoError(t, writePromptTable(&buf, prompts.List(), ailink.NewRegistry(ailink.Config{})))
	assert.Contains(t, buf.String(), "unrouted")
}
