package synth

import "github.com/aptoseidon/aptoseidon/internal/core"

// Risk levels of the external report.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// RiskLevel buckets a final (safety) score.
func RiskLevel(finalScore float64) string {
	switch {
	case finalScore > 0.7:
		return RiskLow
	case finalScore > 0.4:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// ToReport maps a FinalReport onto the external schema.
func ToReport(fr core.FinalReport) *core.Report {
	flags := nonNil(fr.Risk.Flags)
	signals := nonNil(fr.Credibility.Signals)
	audit := make([]string, 0, len(flags)+len(signals))
	audit = append(audit, flags...)
	audit = append(audit, signals...)

	return &core.Report{
		RiskScore:         int(fr.Risk.Score * 100),
		RiskLevel:         RiskLevel(fr.FinalScore),
		Score:             int(fr.FinalScore * 100),
		Summary:           fr.Summary,
		InvestmentAdvice:  "Fundamental Assessment: " + fr.Verdict,
		AuditDetails:      audit,
		RiskFlags:         flags,
		PositiveSignals:   signals,
		MarketData:        fr.MarketData,
		FinancialAnalysis: fr.FinancialAnalysis,
		RuleResults:       fr.RuleResults,
		AgentConflict:     fr.AgentConflict,
		Narrative:         fr.Narrative,
		Confidence:        fr.Confidence,
		ConfidenceDetails: fr.ConfidenceDetails,
		Degraded:          nonNil(fr.Degraded),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
