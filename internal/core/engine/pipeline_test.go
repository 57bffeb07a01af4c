package engine

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/aptoseidon/aptoseidon/internal/core/rules"
	"github.com/aptoseidon/aptoseidon/internal/core/synth"
)

type stubJudge struct {
	calls atomic.Int32
	risk  core.RiskAnalysis
	cred  core.CredibilityAnalysis
}

func (s *stubJudge) AssessRisk(context.Context, *core.EvidenceBundle) core.RiskAnalysis {
	s.calls.Add(1)
	return s.risk
}

func (s *stubJudge) AssessCredibility(context.Context, *core.EvidenceBundle) core.CredibilityAnalysis {
	s.calls.Add(1)
	return s.cred
}

func (s *stubJudge) Narrate(context.Context, *core.EvidenceBundle, []core.RuleResult) core.Narrative {
	s.calls.Add(1)
	return core.Narrative{Text: "A structural narrative.", Outcome: core.Computed()}
}

func (s *stubJudge) DetectConflict(_ context.Context, _ []core.RuleResult, risk core.RiskAnalysis, _ core.CredibilityAnalysis) core.ConflictFinding {
	s.calls.Add(1)
	return core.ConflictFinding{HasConflict: risk.Score < 0.2, Reason: "rules disagree", Outcome: core.Computed()}
}

type stubSummary struct{}

func (stubSummary) CompleteText(context.Context, string, string) (string, error) {
	return "Executive summary.", nil
}

func failWarn() []core.RuleResult {
	return []core.RuleResult{
		{RuleID: "DOCS_MISSING", Status: core.StatusFail},
		{RuleID: "LIQ_UNKNOWN", Status: core.StatusWarn},
	}
}

func TestPipelineRunsAgents(t *testing.T) {
	judge := &stubJudge{
		risk: core.RiskAnalysis{Score: 0.1, Flags: []string{"x"}, Outcome: core.Computed()},
		cred: core.CredibilityAnalysis{Score: 0.5, Outcome: core.Computed()},
	}
	p := &Pipeline{Judge: judge, Synth: synth.New(stubSummary{}, nil)}

	fr := p.Evaluate(context.Background(), &core.EvidenceBundle{}, failWarn(), false)

	assert.Equal(t, int32(4), judge.calls.Load())
	assert.InDelta(t, 0.9*0.6+0.5*0.4, fr.FinalScore, 1e-9)
	assert.Equal(t, "A structural narrative.", fr.Narrative)
	assert.True(t, fr.AgentConflict.HasConflict)
	assert.Equal(t, 0.4, fr.ConfidenceDetails.Consistency)
	assert.Equal(t, "Executive summary.", fr.Summary)
	assert.Len(t, fr.RuleResults, 2)
}

func TestPipelineSkipsAgentsWhenRulesConclusive(t *testing.T) {
	judge := &stubJudge{}
	p := &Pipeline{Judge: judge, Synth: synth.New(stubSummary{}, nil)}
	results := []core.RuleResult{{RuleID: "DOCS_OK", Status: core.StatusPass}, {RuleID: "LIQ_OK", Status: core.StatusPass}}

	fr := p.Evaluate(context.Background(), &core.EvidenceBundle{}, results, false)

	assert.Zero(t, judge.calls.Load())
	assert.Equal(t, 0.1, fr.Risk.Score)
	assert.Equal(t, 0.9, fr.Credibility.Score)
	assert.Equal(t, rules.BaselineNarrative, fr.Narrative)
	assert.False(t, fr.AgentConflict.HasConflict)
	assert.Empty(t, fr.Degraded, "skipped judgments are not degraded")
}

func TestPipelineEvidenceOnly(t *testing.T) {
	judge := &stubJudge{}
	p := &Pipeline{Judge: judge}

	fr := p.Evaluate(context.Background(), &core.EvidenceBundle{}, failWarn(), true)

	assert.Zero(t, judge.calls.Load())
	assert.Equal(t, 0.4, fr.Risk.Score)
	require.Equal(t, synth.FallbackSummary, fr.Summary)
}

func TestPipelineWithoutJudge(t *testing.T) {
	p := &Pipeline{}
	fr := p.Evaluate(context.Background(), &core.EvidenceBundle{}, failWarn(), false)
	assert.Equal(t, 0.4, fr.Risk.Score)
	assert.Equal(t, core.OutcomeSkipped, fr.Risk.Outcome.Kind)
}
