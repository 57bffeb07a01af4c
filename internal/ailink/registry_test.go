package ailink

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aptoseidon/aptoseidon/internal/ailink/driver/eino"
	"github.com/aptoseidon/aptoseidon/internal/ailink/driver/gemini"
	"github.com/aptoseidon/aptoseidon/internal/ailink/driver/openai"
	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
)

func TestResolveModelPrefersProviderTier(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default", "fast": "m-fast"}}
	promptDef := &prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"preferred_models": []string{"prompt-model"}}}}

	model, err := resolveModel(providerCfg, promptDef, "", "fast")
	require.NoError(t, err)
	require.Equal(t, "m-fast", model)
}

func TestResolveModelFallsBackToDefaultWhenTierMissing(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default"}}

	model, err := resolveModel(providerCfg, nil, "", "fast")
	require.NoError(t, err)
	require.Equal(t, "m-default", model)
}

func TestResolveModelUsesOverrideFirst(t *testing.T) {
	providerCfg := ProviderInstanceConfig{Models: map[string]string{"default": "m-default", "fast": "m-fast"}}

	model, err := resolveModel(providerCfg, nil, "override-model", "fast")
	require.NoError(t, err)
	require.Equal(t, "override-model", model)
}

func TestResolveModelFallsBackToPromptPreferredModels(t *testing.T) {
	promptDef := &prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"preferred_models": []any{"prompt-model"}}}}

	model, err := resolveModel(ProviderInstanceConfig{}, promptDef, "", "")
	require.NoError(t, err)
	require.Equal(t, "prompt-model", model)
}

func TestResolveModelErrorsWhenNothingConfigured(t *testing.T) {
	_, err := resolveModel(ProviderInstanceConfig{}, nil, "", "")
	require.ErrorContains(t, err, "model not configured")
}

func TestResolveRoutesRoleToProvider(t *testing.T) {
	reg := NewRegistry(Config{
		DefaultProvider: "openai",
		Routing:         map[string]string{"contradiction-check": "local"},
		Providers: map[string]ProviderInstanceConfig{
			"openai": {
				Enabled: true, AIProvider: "openai",
				Models:      map[string]string{"default": "gpt-4o-mini"},
				Credentials: []CredentialConfig{{Enabled: true, Label: "a", APIKey: "k1"}},
			},
			"local": {
				Enabled: true, AIProvider: "eino", BaseURL: "http://localhost:11434/v1",
				Models:      map[string]string{"default": "llama3"},
				Credentials: []CredentialConfig{{Enabled: true, APIKey: "ollama"}},
			},
			"google": {
				Enabled: true, AIProvider: "gemini", Roles: []string{"executive-summary"},
				Models:      map[string]string{"default": "gemini-2.0-flash"},
				Credentials: []CredentialConfig{{Enabled: true, APIKey: "g"}},
			},
		},
	})

	resolved, err := reg.Resolve("contradiction-check", nil, "")
	require.NoError(t, err)
	require.Equal(t, "local", resolved.ProviderID)
	require.IsType(t, &eino.Client{}, resolved.Driver)
	require.Equal(t, "llama3", resolved.Model)

	resolved, err = reg.Resolve("executive-summary", nil, "")
	require.NoError(t, err)
	require.IsType(t, &gemini.Client{}, resolved.Driver)

	resolved, err = reg.Resolve("risk-assessment", nil, "")
	require.NoError(t, err)
	require.Equal(t, "openai", resolved.ProviderID)
	require.IsType(t, &openai.Client{}, resolved.Driver)
	require.Equal(t, "https://api.openai.com/v1", resolved.BaseURL)

	again, err := reg.Resolve("risk-assessment", nil, "")
	require.NoError(t, err)
	require.Same(t, resolved.Driver, again.Driver)
}

func TestResolveRejectsUnknownDriver(t *testing.T) {
	reg := NewRegistry(Config{Providers: map[string]ProviderInstanceConfig{
		"x": {Enabled: true, AIProvider: "xai", Models: map[string]string{"default": "m"}, Credentials: []CredentialConfig{{APIKey: "k"}}},
	}})
	_, err := reg.Resolve("", nil, "")
	require.ErrorContains(t, err, "unsupported ai_provider")
}

func TestSelectCredentialRoundRobin(t *testing.T) {
	cfg := ProviderInstanceConfig{
		SelectionPolicy: "round_robin",
		Credentials: []CredentialConfig{
			{Enabled: true, Label: "a", APIKey: "ka", Priority: 1},
			{Enabled: true, Label: "b", APIKey: "kb", Priority: 1},
			{Enabled: true, Label: "low", APIKey: "kl", Priority: 0},
		},
	}
	reg := NewRegistry(Config{})
	next := func(group string, n int) int { return reg.rrIndex("p:"+group, n) }

	first, _, err := selectCredential(cfg, next)
	require.NoError(t, err)
	second, _, err := selectCredential(cfg, next)
	require.NoError(t, err)
	require.NotEqual(t, first.Label, second.Label)
	require.NotEqual(t, "low", first.Label)
}
