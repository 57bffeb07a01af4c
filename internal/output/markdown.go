package output

import (
	"fmt"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/core"
)

// MarkdownFormatter renders results as Markdown.
type MarkdownFormatter struct{}

// FormatAnalysis renders an analysis response as Markdown.
func (f *MarkdownFormatter) FormatAnalysis(resp *core.AnalyzeResponse) (string, error) {
	if resp == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Project assessment\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	for _, fl := range overviewFields(resp) {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", escapeMarkdownCell(fl.Name), escapeMarkdownCell(fl.Value)))
	}

	if resp.Report == nil {
		return sb.String(), nil
	}

	if len(resp.Report.RuleResults) > 0 {
		sb.WriteString("\n### Rules\n\n")
		sb.WriteString("| Rule | Status | Reason | Source |\n")
		sb.WriteString("|------|--------|--------|--------|\n")
		for _, r := range resp.Report.RuleResults {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				escapeMarkdownCell(r.RuleID),
				escapeMarkdownCell(string(r.Status)),
				escapeMarkdownCell(r.Reason),
				escapeMarkdownCell(r.Source),
			))
		}
	}

	sb.WriteString(renderSections(reportSections(resp.Report), true))
	return sb.String(), nil
}

// FormatVotes renders a vote tally as Markdown.
func (f *MarkdownFormatter) FormatVotes(tally core.VoteTally) (string, error) {
	return fmt.Sprintf("**%s**: %d up, %d down\n", escapeMarkdownCell(tally.JobID), tally.Up, tally.Down), nil
}

// FormatRateLimits renders stored throttle state as a Markdown table.
func (f *MarkdownFormatter) FormatRateLimits(entries []core.RateLimitEntry) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Endpoint | Requests | Backoff Until |\n|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "| %s | %d | %s |\n", escapeMarkdownCell(e.Endpoint), e.State.RequestCount, formatTime(e.State.BackoffUntil))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.ReplaceAll(value, "|", "\\|")
}
