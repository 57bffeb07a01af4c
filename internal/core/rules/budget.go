package rules

import "github.com/aptoseidon/aptoseidon/internal/core"

// BaselineNarrative replaces the narrative when agents are skipped.
const BaselineNarrative = "Baseline structural report based on deterministic rules."

// Decision is the budget controller's verdict for one run.
type Decision struct {
	RunAgents bool
	Fails     int
	Warns     int
	Reason    string
}

// Decide counts rule failures and warnings. Agents are skipped when
// evidenceOnly is set, or when there are fewer than two failures and no
// warnings.
func Decide(results []core.RuleResult, evidenceOnly bool) Decision {
	d := Decision{
		Fails: core.CountStatus(results, core.StatusFail),
		Warns: core.CountStatus(results, core.StatusWarn),
	}
	switch {
	case evidenceOnly:
		d.Reason = "evidence-only mode"
	case d.Fails < 2 && d.Warns == 0:
		d.Reason = "rules conclusive"
	default:
		d.RunAgents = true
	}
	return d
}

// Fallbacks returns the deterministic judgments used when agents are skipped.
func Fallbacks(d Decision) (core.RiskAnalysis, core.CredibilityAnalysis, core.Narrative) {
	risk := 0.1
	if d.Fails > 0 {
		risk = 0.4
	}
	outcome := core.Skipped(d.Reason)
	return core.RiskAnalysis{Score: risk, Flags: []string{}, Outcome: outcome},
		core.CredibilityAnalysis{Score: 0.9, Signals: []string{}, Outcome: outcome},
		core.Narrative{Text: BaselineNarrative, Outcome: outcome}
}
