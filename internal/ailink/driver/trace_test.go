package driver

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTraceCallWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	closeTrace, err := EnableTracing(path)
	require.NoError(t, err)

	req := &Request{Model: "gpt-4o-mini", PromptSlug: "risk-assessment"}
	TraceCall("openai", req, []byte(`{"model":"gpt-4o-mini"}`), 200, `{"risk_score":0.2}`, time.Now(), nil)
	TraceCall("openai", req, []byte("not-json"), 500, "", time.Now(), errors.New("boom"))
	closeTrace()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() // nolint:errcheck // test cleanup

	var entries []TraceEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry TraceEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, entries, 2)

	require.Equal(t, "risk-assessment", entries[0].PromptSlug)
	require.JSONEq(t, `{"model":"gpt-4o-mini"}`, string(entries[0].RequestBody))
	require.Empty(t, entries[1].RequestBody)
	require.Equal(t, "boom", entries[1].Error)
}

func TestTraceIsNoopWhenDisabled(t *testing.T) {
	DisableTracing()
	TraceCall("openai", nil, nil, 0, "", time.Now(), nil)
}
