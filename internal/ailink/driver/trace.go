package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// TraceEntry is one line of the completion trace file.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	PromptSlug  string          `json:"prompt_slug,omitempty"`
	Model       string          `json:"model,omitempty"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Response    string          `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

// Tracer appends completion traces to a file as NDJSON.
type Tracer struct {
	file *os.File
	mu   sync.Mutex
}

var (
	globalTracer *Tracer
	tracerMu     sync.Mutex
)

// EnableTracing starts tracing to path and returns a function that closes it.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	tracerMu.Lock()
	if globalTracer != nil {
		_ = globalTracer.Close()
	}
	globalTracer = &Tracer{file: f}
	tracerMu.Unlock()

	return DisableTracing, nil
}

// DisableTracing stops tracing and closes the trace file.
func DisableTracing() {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	if globalTracer != nil {
		_ = globalTracer.Close()
		globalTracer = nil
	}
}

// Trace records a trace entry if tracing is enabled.
func Trace(entry TraceEntry) {
	tracerMu.Lock()
	t := globalTracer
	tracerMu.Unlock()

	t.Write(entry)
}

// TraceCall records one driver round trip. A nil err with an empty response
// is still recorded so empty completions show up in the trace.
func TraceCall(driverName string, req *Request, body []byte, status int, response string, started time.Time, err error) {
	entry := TraceEntry{
		Driver:      driverName,
		RequestBody: json.RawMessage(body),
		StatusCode:  status,
		Response:    response,
		DurationMs:  time.Since(started).Milliseconds(),
	}
	if req != nil {
		entry.PromptSlug = req.PromptSlug
		entry.Model = req.Model
	}
	if len(body) == 0 || !json.Valid(body) {
		entry.RequestBody = nil
	}
	if err != nil {
		entry.Error = err.Error()
	}
	Trace(entry)
}

// Write records a trace entry.
func (t *Tracer) Write(entry TraceEntry) {
	if t == nil || t.file == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.file.Write(append(data, '\n'))
}

// Close closes the trace file.
func (t *Tracer) Close() error {
	if t == nil || t.file == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}
