package output

import (
	"fmt"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/core"
)

// Format names a CLI rendering.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

var formatAliases = map[string]Format{
	"":         FormatTable,
	"table":    FormatTable,
	"text":     FormatTable,
	"json":     FormatJSON,
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
}

// Formatter renders reports, vote tallies and stored rate-limit windows.
type Formatter interface {
	FormatAnalysis(resp *core.AnalyzeResponse) (string, error)
	FormatVotes(tally core.VoteTally) (string, error)
	FormatRateLimits(entries []core.RateLimitEntry) (string, error)
}

// ParseFormat accepts a format name or alias, case-insensitively. Empty
// means table.
func ParseFormat(value string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q (use table, json or markdown)", value)
}

// Extension is the file suffix used when a rendering is written to a directory.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

// NewFormatter returns the formatter for format; unknown values render as tables.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	}
	return &TableFormatter{}
}
