package agents

import (
	"context"
	"strconv"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
	"github.com/aptoseidon/aptoseidon/internal/core"
)

// DetectConflict asks whether the rule verdicts and the agent scores disagree.
// Any failure reports no conflict.
func (a *Agents) DetectConflict(ctx context.Context, results []core.RuleResult, risk core.RiskAnalysis, cred core.CredibilityAnalysis) core.ConflictFinding {
	var sb strings.Builder
	sb.WriteString("Rules:\n")
	sb.WriteString(formatRules(results, " - ", false))
	sb.WriteString("\n\nAI Analysis:\n")
	sb.WriteString("AI Risk Score: " + strconv.FormatFloat(risk.Score, 'f', -1, 64) + "\n")
	sb.WriteString("AI Credibility Score: " + strconv.FormatFloat(cred.Score, 'f', -1, 64))

	raw, err := a.llm.CompleteJSON(ctx, prompt.SlugContradiction, sb.String())
	if err != nil {
		return core.ConflictFinding{Outcome: a.degrade(NameContradiction, reasonCallFailed, err)}
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return core.ConflictFinding{Outcome: a.degrade(NameContradiction, reasonBadResponse, err)}
	}
	has, ok := obj.boolean("has_conflict")
	if !ok {
		return core.ConflictFinding{Outcome: a.degrade(NameContradiction, "response missing has_conflict", nil)}
	}
	finding := core.ConflictFinding{HasConflict: has, Outcome: a.computed(NameContradiction)}
	if has {
		finding.Reason = obj.text("reason")
	}
	return finding
}
