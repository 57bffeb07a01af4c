package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptoseidon/aptoseidon/internal/config"
	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/aptoseidon/aptoseidon/internal/core/source"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	unreachable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(unreachable.Close)

	return &config.Config{
		Sources: config.SourcesConfig{
			HTTPTimeout: 2 * time.Second,
			CoinGecko:   config.CoinGeckoConfig{BaseURL: unreachable.URL},
			Aptos:       config.AptosConfig{NodeURL: unreachable.URL, ReservedPrefixes: []string{"0x1::"}},
			Search:      config.SearchConfig{Provider: "none"},
		},
		Pipeline: config.PipelineConfig{
			NameLimit:         50,
			TextLimit:         3000,
			AgentContextLimit: 2000,
			DocMarkers:        []string{"docs", "whitepaper"},
			Rules:             []string{"docs", "liquidity"},
			TokenTypes:        []string{"token", "coin"},
		},
		Payment: config.PaymentConfig{
			NodeURL:           unreachable.URL,
			Recipient:         config.DefaultPaymentRecipient,
			MinimumOctas:      config.DefaultMinimumOctas,
			TransferFunctions: []string{"0x1::aptos_account::transfer"},
			BypassToken:       "dev-token",
			DevBypassEnabled:  true,
		},
	}
}

func TestBuildServiceWithoutAIBackend(t *testing.T) {
	cfg := testConfig(t)

	svc, err := buildService(cfg, nil, nil)
	require.NoError(t, err)

	assert.Nil(t, svc.Store)
	assert.NotNil(t, svc.Gate)
	require.NotNil(t, svc.Pipeline)
	assert.Nil(t, svc.Pipeline.Judge)
	assert.NotNil(t, svc.Pipeline.Synth)
	assert.Nil(t, svc.Collector.Search)
	assert.Nil(t, svc.Collector.Age)
	assert.Equal(t, []string{"docs", "liquidity"}, svc.Rules.Names())
}

func TestBuildServiceWithAIBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.AILink = configuredAILink()

	svc, err := buildService(cfg, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc.Pipeline.Judge)
}

func TestBuildServiceWiresOptionalSources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources.Search = config.SearchConfig{Provider: "searxng", BaseURL: "http://localhost:8888", Limit: 5}
	cfg.Sources.RDAP = config.RDAPConfig{Enabled: true, Timeout: time.Second}

	svc, err := buildService(cfg, nil, nil)
	require.NoError(t, err)

	assert.IsType(t, &source.SearXNG{}, svc.Collector.Search)
	assert.NotNil(t, svc.Collector.Age)
}

func TestBuildServiceRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "unknown rule", mutate: func(c *config.Config) { c.Pipeline.Rules = []string{"vibes"} }},
		{name: "tavily without key", mutate: func(c *config.Config) { c.Sources.Search = config.SearchConfig{Provider: "tavily"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := buildService(cfg, nil, nil)
			assert.Error(t, err)
		})
	}
}

func TestBuiltServiceRunsPreCheckAndBypassReport(t *testing.T) {
	cfg := testConfig(t)
	svc, err := buildService(cfg, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	pre, err := svc.Analyze(ctx, core.AnalyzeRequest{Input: "aptos", Mode: core.ModePreCheck})
	require.NoError(t, err)
	assert.Equal(t, core.StatusPreCheckOK, pre.Status)
	assert.Nil(t, pre.Report)

	full, err := svc.Analyze(ctx, core.AnalyzeRequest{Input: "aptos", Mode: core.ModeFull, PaymentTxRef: "dev-token"})
	require.NoError(t, err)
	assert.Equal(t, core.StatusOK, full.Status)
	assert.True(t, strings.HasPrefix(full.JobID, "agent-"))
	require.NotNil(t, full.Report)
}
