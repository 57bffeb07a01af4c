package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/core"
)

type analysisSection struct {
	Title string
	Lines []string
}

type field struct {
	Name  string
	Value string
}

// overviewFields lists the headline values of a response in display order.
func overviewFields(resp *core.AnalyzeResponse) []field {
	fields := []field{{"Status", resp.Status}}
	if resp.JobID != "" {
		fields = append(fields, field{"Job", resp.JobID})
	}
	pc := resp.PreCheck
	fields = append(fields,
		field{"Domain age", pc.Age},
		field{"Liquidity", pc.Liquidity},
		field{"Social mentions", pc.SocialMentions},
		field{"Contract verified", yesNo(pc.ContractVerified)},
	)

	r := resp.Report
	if r == nil {
		return fields
	}
	cd := r.ConfidenceDetails
	return append(fields,
		field{"Risk", fmt.Sprintf("%d/100 (%s)", r.RiskScore, r.RiskLevel)},
		field{"Score", fmt.Sprintf("%d/100", r.Score)},
		field{"Confidence", fmt.Sprintf("%.2f (on-chain %.1f, social %.1f, consistency %.1f)",
			r.Confidence, cd.OnChain, cd.Social, cd.Consistency)},
		field{"Assessment", r.InvestmentAdvice},
	)
}

// reportSections lists the detail blocks of a full report. Empty blocks are
// omitted.
func reportSections(r *core.Report) []analysisSection {
	if r == nil {
		return nil
	}

	var sections []analysisSection
	add := func(title string, lines []string) {
		if len(lines) > 0 {
			sections = append(sections, analysisSection{Title: title, Lines: lines})
		}
	}

	if s := strings.TrimSpace(r.Summary); s != "" {
		add("Summary", []string{s})
	}
	add("Risk Flags", r.RiskFlags)
	add("Positive Signals", r.PositiveSignals)
	if r.AgentConflict.HasConflict {
		add("Conflict", []string{r.AgentConflict.Reason})
	}
	add("Market Data", marketLines(r.MarketData))
	if n := strings.TrimSpace(r.Narrative); n != "" {
		add("Narrative", []string{n})
	}
	add("Degraded", r.Degraded)
	return sections
}

func marketLines(m *core.MarketData) []string {
	if m == nil {
		return nil
	}
	lines := []string{}
	if m.Symbol != "" {
		lines = append(lines, "Symbol: "+strings.ToUpper(m.Symbol))
	}
	lines = append(lines,
		"Price: $"+formatAmount(m.PriceUSD),
		"Market cap: $"+formatAmount(m.MarketCap),
		"24h volume: $"+formatAmount(m.Volume24h),
		fmt.Sprintf("24h change: %.2f%%", m.Change24h),
	)
	return lines
}

func formatAmount(v float64) string {
	switch {
	case v >= 1e9:
		return strconv.FormatFloat(v/1e9, 'f', 2, 64) + "B"
	case v >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 2, 64) + "M"
	case v >= 1:
		return strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return strconv.FormatFloat(v, 'g', 4, 64)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func renderSections(sections []analysisSection, markdown bool) string {
	var sb strings.Builder
	for _, section := range sections {
		if markdown {
			sb.WriteString(fmt.Sprintf("\n### %s\n\n", section.Title))
			for _, line := range section.Lines {
				sb.WriteString(fmt.Sprintf("- %s\n", line))
			}
			continue
		}
		sb.WriteString(fmt.Sprintf("\n%s:\n", section.Title))
		for _, line := range section.Lines {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
	}
	return sb.String()
}
