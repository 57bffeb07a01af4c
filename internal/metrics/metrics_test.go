package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptoseidon/aptoseidon/internal/observability"
)

func withCollector(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()
	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	prev := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = prev })
	return collector
}

func TestPipelineMetricsEmit(t *testing.T) {
	collector := withCollector(t)

	RecordAnalysis("full", "ok", 120*time.Millisecond)
	RecordSourceFetch("coingecko", false, 40*time.Millisecond)
	RecordAgentRun("risk", "degraded")
	RecordBudgetDecision(true)
	RecordPaymentVerification("AUTHORIZED")
	RecordCacheLookup(true)
	RecordVote("up")
	RecordError("PAYMENT_REQUIRED", 402)

	for _, name := range []string{
		AnalysisRequestsTotal, AnalysisDuration, SourceFetchTotal, SourceFetchDuration,
		AgentRunsTotal, BudgetDecisionsTotal, PaymentVerificationsTotal, ReportCacheTotal,
		VotesTotal, ErrorsTotalName,
	} {
		assert.Greater(t, collector.CountMetricsByName(name), 0, name)
	}
}

func TestMetricsWithoutTelemetry(t *testing.T) {
	prev := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = prev })

	RecordAnalysis("pre_check", "pre_check_ok", time.Millisecond)
	RecordPanic()
	SetServerStartTime(time.Now().Unix())
}
