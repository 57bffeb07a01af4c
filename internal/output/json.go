package output

import (
	"encoding/json"

	"github.com/aptoseidon/aptoseidon/internal/core"
)

// JSONFormatter renders responses exactly as the HTTP API returns them.
type JSONFormatter struct {
	Indent bool
}

// FormatAnalysis renders an analysis response as JSON.
func (f *JSONFormatter) FormatAnalysis(resp *core.AnalyzeResponse) (string, error) {
	if resp == nil {
		return "", nil
	}
	return f.marshal(resp)
}

// FormatVotes renders a vote tally as JSON.
func (f *JSONFormatter) FormatVotes(tally core.VoteTally) (string, error) {
	return f.marshal(tally)
}

// FormatRateLimits renders stored throttle state as a JSON array.
func (f *JSONFormatter) FormatRateLimits(entries []core.RateLimitEntry) (string, error) {
	if entries == nil {
		entries = []core.RateLimitEntry{}
	}
	return f.marshal(entries)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
