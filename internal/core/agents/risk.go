package agents

import (
	"context"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
	"github.com/aptoseidon/aptoseidon/internal/core"
)

const (
	flagNoContent     = "No content found to analyze"
	flagManualReview  = "AI Analysis Error, manual review required"
	reasonNoEvidence  = "no evidence collected"
	reasonCallFailed  = "completion failed"
	reasonBadResponse = "unusable response"
)

// AssessRisk scores technical and financial risk from page text, market data
// and on-chain data.
func (a *Agents) AssessRisk(ctx context.Context, b *core.EvidenceBundle) core.RiskAnalysis {
	if b.RawText == "" && b.MarketData == nil && b.OnChainData == nil {
		return core.RiskAnalysis{
			Score:   neutralScore,
			Flags:   []string{flagNoContent},
			Outcome: a.degrade(NameRisk, reasonNoEvidence, nil),
		}
	}

	raw, err := a.llm.CompleteJSON(ctx, prompt.SlugRisk, a.riskContext(b))
	if err != nil {
		return a.riskFallback(reasonCallFailed, err)
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return a.riskFallback(reasonBadResponse, err)
	}
	score, ok := obj.score("risk_score")
	if !ok {
		return a.riskFallback(reasonBadResponse, nil)
	}
	return core.RiskAnalysis{
		Score:   score,
		Flags:   obj.strings("risk_flags"),
		Outcome: a.computed(NameRisk),
	}
}

func (a *Agents) riskFallback(reason string, err error) core.RiskAnalysis {
	return core.RiskAnalysis{
		Score:   neutralScore,
		Flags:   []string{flagManualReview},
		Outcome: a.degrade(NameRisk, reason, err),
	}
}

func (a *Agents) riskContext(b *core.EvidenceBundle) string {
	var sb strings.Builder
	if pt := strings.TrimSpace(b.Input.ProjectType); pt != "" {
		sb.WriteString("Project Type: " + pt + "\n")
		if a.isBaseLayer(pt) {
			sb.WriteString("Note: base-layer chain or wallet; absence of smart contracts is not a risk.\n")
		}
	}
	sb.WriteString("Website Content: " + core.Truncate(b.RawText, a.opts.ContextLimit) + "\n")
	if b.MarketData != nil {
		sb.WriteString("Market Data (CoinGecko): " + renderJSON(b.MarketData) + "\n")
	}
	if b.OnChainData != nil {
		sb.WriteString("On-Chain Data: " + renderJSON(b.OnChainData) + "\n")
	}
	return sb.String()
}
