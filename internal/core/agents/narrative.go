package agents

import (
	"context"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
	"github.com/aptoseidon/aptoseidon/internal/core"
)

// NoNarrative is the text used when no narrative could be generated.
const NoNarrative = "No narrative generated."

// Narrate writes a neutral three-sentence structural summary from market data
// and rule results.
func (a *Agents) Narrate(ctx context.Context, b *core.EvidenceBundle, results []core.RuleResult) core.Narrative {
	var sb strings.Builder
	sb.WriteString("Project Name: " + b.ProjectName + "\n")
	sb.WriteString("Market Data: " + renderJSON(b.MarketData) + "\n")
	sb.WriteString("Rule Results:\n")
	sb.WriteString(formatRules(results, "", true))

	text, err := a.llm.CompleteText(ctx, prompt.SlugNarrative, sb.String())
	if err != nil {
		return core.Narrative{Text: NoNarrative, Outcome: a.degrade(NameNarrative, reasonCallFailed, err)}
	}
	if text == "" {
		return core.Narrative{Text: NoNarrative, Outcome: a.degrade(NameNarrative, "empty response", nil)}
	}
	return core.Narrative{Text: text, Outcome: a.computed(NameNarrative)}
}
