package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/ailink"
)

// agentGuidanceShown keeps the no-backend note to once per process.
var agentGuidanceShown bool

// isAIBackendConfigured reports whether any enabled provider has an enabled
// credential with an API key.
func isAIBackendConfigured(cfg ailink.Config) bool {
	for _, provider := range cfg.Providers {
		if !provider.Enabled {
			continue
		}
		for _, cred := range provider.Credentials {
			if cred.Enabled && strings.TrimSpace(cred.APIKey) != "" {
				return true
			}
		}
	}
	return false
}

// showAgentGuidance explains on w (stderr by default) that full analyses run
// rules only until a completion backend is configured.
func showAgentGuidance(cfg ailink.Config, w io.Writer) {
	if agentGuidanceShown || isAIBackendConfigured(cfg) {
		return
	}
	if w == nil {
		w = os.Stderr
	}

	lines := []string{
		"",
		"Note: no AI backend configured; full reports use rule results only.",
		"",
		"  Risk, credibility and narrative judgments fall back to neutral defaults",
		"  and the report lists them under \"degraded\".",
		"",
		"  To enable the analysis agents, configure a provider:",
		"    APTOSEIDON_AILINK_PROVIDERS_MYAI_ENABLED=true",
		"    APTOSEIDON_AILINK_PROVIDERS_MYAI_AI_PROVIDER=openai",
		"    APTOSEIDON_AILINK_PROVIDERS_MYAI_CREDENTIALS_0_ENABLED=true",
		"    APTOSEIDON_AILINK_PROVIDERS_MYAI_CREDENTIALS_0_API_KEY=YOUR_KEY",
		"    APTOSEIDON_AILINK_DEFAULT_PROVIDER=myai",
		"",
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(w, line)
	}

	agentGuidanceShown = true
}

func resetAgentGuidance() {
	agentGuidanceShown = false
}
