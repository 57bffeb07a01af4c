// Package synth combines rule results and agent judgments into a final report.
package synth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/aptoseidon/aptoseidon/internal/core/agents"
	"github.com/aptoseidon/aptoseidon/internal/observability"
)

// Score weights. Risk dominates.
const (
	RiskWeight        = 0.6
	CredibilityWeight = 0.4
)

const (
	// Verdict is the fixed verdict of every synthesized report.
	Verdict = "Structural Assessment Finalized."
	// Confidence is reported independently of the decomposition.
	Confidence = 0.95
	// FallbackSummary is used when the executive summary call fails.
	FallbackSummary = "Analysis complete."

	// NameSummary labels a defaulted executive summary.
	NameSummary = "summary"
)

// Summarizer produces the executive summary text.
type Summarizer interface {
	CompleteText(ctx context.Context, slug, userContent string) (string, error)
}

// Inputs are the judgments gathered for one run.
type Inputs struct {
	Risk        core.RiskAnalysis
	Credibility core.CredibilityAnalysis
	MarketData  *core.MarketData
	RuleResults []core.RuleResult
	Narrative   core.Narrative
	Conflict    core.ConflictFinding
	Financial   map[string]any
}

// Synthesizer builds FinalReports.
type Synthesizer struct {
	llm    Summarizer
	logger observability.Logger
}

// New returns a Synthesizer. A nil llm always uses the fallback summary.
func New(llm Summarizer, logger observability.Logger) *Synthesizer {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Synthesizer{llm: llm, logger: logger}
}

// FinalScore weighs safety (1 - risk) against credibility.
func FinalScore(risk, credibility float64) float64 {
	return (1-risk)*RiskWeight + credibility*CredibilityWeight
}

// Decompose derives per-family confidence from the judgments.
func Decompose(in Inputs) core.ConfidenceDetails {
	details := core.ConfidenceDetails{OnChain: 0.5, Social: 0.4, Consistency: 0.9}
	if in.MarketData != nil || !in.Risk.Outcome.IsDegraded() {
		details.OnChain = 0.9
	}
	if len(in.Credibility.Signals) > 0 {
		details.Social = 0.7
	}
	if in.Conflict.HasConflict {
		details.Consistency = 0.4
	}
	return details
}

// Synthesize produces the final report. It makes one completion call for the
// summary and never fails.
func (s *Synthesizer) Synthesize(ctx context.Context, in Inputs) core.FinalReport {
	rules := in.RuleResults
	if rules == nil {
		rules = []core.RuleResult{}
	}
	report := core.FinalReport{
		FinalScore:        FinalScore(in.Risk.Score, in.Credibility.Score),
		Verdict:           Verdict,
		Confidence:        Confidence,
		ConfidenceDetails: Decompose(in),
		Risk:              in.Risk,
		Credibility:       in.Credibility,
		MarketData:        in.MarketData,
		FinancialAnalysis: in.Financial,
		RuleResults:       rules,
		AgentConflict:     in.Conflict,
		Narrative:         in.Narrative.Text,
		Degraded:          degradedList(in),
	}

	summary, err := s.summarize(ctx, in)
	if err != nil || summary == "" {
		s.logger.Warn("executive summary unavailable, using fallback", zap.Error(err))
		summary = FallbackSummary
		report.Degraded = append(report.Degraded, NameSummary+": completion failed")
	}
	report.Summary = summary
	return report
}

func (s *Synthesizer) summarize(ctx context.Context, in Inputs) (string, error) {
	if s.llm == nil {
		return "", errors.New("no completion service configured")
	}
	var sb strings.Builder
	sb.WriteString("Risk Score: " + strconv.FormatFloat(in.Risk.Score, 'f', -1, 64) + "\n")
	sb.WriteString("Credibility Score: " + strconv.FormatFloat(in.Credibility.Score, 'f', -1, 64) + "\n")
	sb.WriteString("Structural Narrative: " + in.Narrative.Text + "\n")
	sb.WriteString("Conflict Detected: " + strconv.FormatBool(in.Conflict.HasConflict))
	return s.llm.CompleteText(ctx, prompt.SlugExecutiveSummary, sb.String())
}

func degradedList(in Inputs) []string {
	out := []string{}
	add := func(name string, o core.Outcome) {
		if o.IsDegraded() {
			out = append(out, name+": "+o.Reason)
		}
	}
	add(agents.NameRisk, in.Risk.Outcome)
	add(agents.NameCredibility, in.Credibility.Outcome)
	add(agents.NameNarrative, in.Narrative.Outcome)
	add(agents.NameContradiction, in.Conflict.Outcome)
	return out
}
