package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/aptoseidon/aptoseidon/internal/core/agents"
	"github.com/aptoseidon/aptoseidon/internal/core/rules"
	"github.com/aptoseidon/aptoseidon/internal/core/synth"
	"github.com/aptoseidon/aptoseidon/internal/metrics"
	"github.com/aptoseidon/aptoseidon/internal/observability"
)

// Judge is the agent set the pipeline consults when the budget allows.
type Judge interface {
	AssessRisk(ctx context.Context, b *core.EvidenceBundle) core.RiskAnalysis
	AssessCredibility(ctx context.Context, b *core.EvidenceBundle) core.CredibilityAnalysis
	Narrate(ctx context.Context, b *core.EvidenceBundle, results []core.RuleResult) core.Narrative
	DetectConflict(ctx context.Context, results []core.RuleResult, risk core.RiskAnalysis, cred core.CredibilityAnalysis) core.ConflictFinding
}

var _ Judge = (*agents.Agents)(nil)

// Pipeline turns an evidence bundle and its rule results into a final report.
type Pipeline struct {
	Judge  Judge
	Synth  *synth.Synthesizer
	Logger observability.Logger
}

// Evaluate applies the budget controller, then runs the agents or their
// fallbacks, then synthesizes. It never fails.
func (p *Pipeline) Evaluate(ctx context.Context, b *core.EvidenceBundle, results []core.RuleResult, evidenceOnly bool) core.FinalReport {
	logger := p.Logger
	if logger == nil {
		logger = observability.Nop()
	}

	decision := rules.Decide(results, evidenceOnly)
	if p.Judge == nil && decision.RunAgents {
		decision.RunAgents = false
		decision.Reason = "no agents configured"
	}
	metrics.RecordBudgetDecision(decision.RunAgents)
	logger.Info("budget decision",
		zap.String("input", b.Input.Raw),
		zap.Bool("run_agents", decision.RunAgents),
		zap.Int("fails", decision.Fails),
		zap.Int("warns", decision.Warns),
		zap.String("reason", decision.Reason))

	var in synth.Inputs
	if decision.RunAgents {
		in = p.runAgents(ctx, b, results)
	} else {
		risk, cred, narrative := rules.Fallbacks(decision)
		in = synth.Inputs{
			Risk:        risk,
			Credibility: cred,
			Narrative:   narrative,
			Conflict:    core.ConflictFinding{Outcome: core.Skipped(decision.Reason)},
		}
	}
	in.MarketData = b.MarketData
	in.RuleResults = results

	s := p.Synth
	if s == nil {
		s = synth.New(nil, logger)
	}
	return s.Synthesize(ctx, in)
}

// runAgents runs risk, credibility and narrative concurrently; the conflict
// check needs the first two.
func (p *Pipeline) runAgents(ctx context.Context, b *core.EvidenceBundle, results []core.RuleResult) synth.Inputs {
	var (
		wg sync.WaitGroup
		in synth.Inputs
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		in.Risk = p.Judge.AssessRisk(ctx, b)
	}()
	go func() {
		defer wg.Done()
		in.Credibility = p.Judge.AssessCredibility(ctx, b)
	}()
	go func() {
		defer wg.Done()
		in.Narrative = p.Judge.Narrate(ctx, b, results)
	}()
	wg.Wait()

	in.Conflict = p.Judge.DetectConflict(ctx, results, in.Risk, in.Credibility)
	return in
}
