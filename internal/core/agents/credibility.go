package agents

import (
	"context"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
	"github.com/aptoseidon/aptoseidon/internal/core"
)

// AssessCredibility scores team, documentation and community credibility.
// Market presence and social search results count as corroboration.
func (a *Agents) AssessCredibility(ctx context.Context, b *core.EvidenceBundle) core.CredibilityAnalysis {
	if b.RawText == "" && b.MarketData == nil && len(b.SocialSignals) == 0 {
		return a.credibilityFallback(reasonNoEvidence, nil)
	}

	raw, err := a.llm.CompleteJSON(ctx, prompt.SlugCredibility, a.credibilityContext(b))
	if err != nil {
		return a.credibilityFallback(reasonCallFailed, err)
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return a.credibilityFallback(reasonBadResponse, err)
	}
	score, ok := obj.score("credibility_score")
	if !ok {
		return a.credibilityFallback(reasonBadResponse, nil)
	}
	return core.CredibilityAnalysis{
		Score:   score,
		Signals: obj.strings("positive_signals"),
		Outcome: a.computed(NameCredibility),
	}
}

func (a *Agents) credibilityFallback(reason string, err error) core.CredibilityAnalysis {
	return core.CredibilityAnalysis{
		Score:   neutralScore,
		Signals: []string{},
		Outcome: a.degrade(NameCredibility, reason, err),
	}
}

func (a *Agents) credibilityContext(b *core.EvidenceBundle) string {
	var sb strings.Builder
	sb.WriteString("Website Content: " + core.Truncate(b.RawText, a.opts.ContextLimit) + "\n")
	if b.MarketData != nil {
		sb.WriteString("Market Data (High Cap is credible): " + renderJSON(b.MarketData) + "\n")
	}
	if len(b.SocialSignals) > 0 {
		sb.WriteString("Social Search Results (Read for sentiment): " + renderJSON(b.SocialSignals) + "\n")
	}
	return sb.String()
}
