package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aptoseidon/aptoseidon/internal/core"
)

// TableFormatter renders results as ASCII tables.
type TableFormatter struct{}

// FormatAnalysis renders the overview table, the rule table and the report
// sections.
func (f *TableFormatter) FormatAnalysis(resp *core.AnalyzeResponse) (string, error) {
	if resp == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, fl := range overviewFields(resp) {
		t.AppendRow(table.Row{fl.Name, fl.Value})
	}
	rendered := t.Render()

	if resp.Report != nil && len(resp.Report.RuleResults) > 0 {
		rules := table.NewWriter()
		rules.SetStyle(table.StyleRounded)
		rules.AppendHeader(table.Row{"Rule", "Status", "Reason", "Source"})
		for _, r := range resp.Report.RuleResults {
			rules.AppendRow(table.Row{r.RuleID, string(r.Status), r.Reason, r.Source})
		}
		fails := core.CountStatus(resp.Report.RuleResults, core.StatusFail)
		rules.AppendFooter(table.Row{"", fmt.Sprintf("%d failed", fails), "", ""})
		rendered += "\n" + rules.Render()
	}

	if resp.Report != nil {
		rendered += "\n" + renderSections(reportSections(resp.Report), false)
	}
	return rendered, nil
}

// FormatVotes renders a vote tally.
func (f *TableFormatter) FormatVotes(tally core.VoteTally) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Job", "Up", "Down"})
	t.AppendRow(table.Row{tally.JobID, tally.Up, tally.Down})
	return t.Render(), nil
}

// FormatRateLimits renders one row per stored endpoint.
func (f *TableFormatter) FormatRateLimits(entries []core.RateLimitEntry) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Rate Limits")
	t.AppendHeader(table.Row{"Endpoint", "Requests", "Window Start", "Backoff Until"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Endpoint, e.State.RequestCount, formatTime(&e.State.WindowStart), formatTime(e.State.BackoffUntil)})
	}
	if len(entries) == 0 {
		t.AppendRow(table.Row{"(none stored)", "", "", ""})
	}
	return t.Render(), nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
