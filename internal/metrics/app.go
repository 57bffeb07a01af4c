package metrics

import (
	"time"

	"github.com/aptoseidon/aptoseidon/internal/observability"
)

// Pipeline metric names
const (
	AnalysisRequestsTotal     = "analysis_requests_total"
	AnalysisDuration          = "analysis_duration_ms"
	SourceFetchTotal          = "source_fetch_total"
	SourceFetchDuration       = "source_fetch_duration_ms"
	AgentRunsTotal            = "agent_runs_total"
	BudgetDecisionsTotal      = "budget_decisions_total"
	PaymentVerificationsTotal = "payment_verifications_total"
	ReportCacheTotal          = "report_cache_total"
	VotesTotal                = "votes_total"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
	ServerStartTime     = "app_server_start_time_seconds"
)

func counter(name string, tags map[string]string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(name, 1, tags)
	}
}

func histogram(name string, d time.Duration, tags map[string]string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(name, d, tags)
	}
}

// RecordAnalysis counts one analysis request. outcome is the response status
// ("ok", "pre_check_ok", "cached", "payment_required" or "error").
func RecordAnalysis(mode, outcome string, duration time.Duration) {
	counter(AnalysisRequestsTotal, map[string]string{"mode": mode, "outcome": outcome})
	histogram(AnalysisDuration, duration, map[string]string{"mode": mode})
}

// RecordSourceFetch counts a call to an external evidence source.
func RecordSourceFetch(source string, ok bool, duration time.Duration) {
	status := "success"
	if !ok {
		status = "failure"
	}
	counter(SourceFetchTotal, map[string]string{"source": source, "status": status})
	histogram(SourceFetchDuration, duration, map[string]string{"source": source})
}

// RecordAgentRun counts an agent invocation; outcome is "computed" or "degraded".
func RecordAgentRun(agent, outcome string) {
	counter(AgentRunsTotal, map[string]string{"agent": agent, "outcome": outcome})
}

// RecordBudgetDecision counts whether agents ran or were skipped.
func RecordBudgetDecision(runAgents bool) {
	decision := "skip_agents"
	if runAgents {
		decision = "run_agents"
	}
	counter(BudgetDecisionsTotal, map[string]string{"decision": decision})
}

// RecordPaymentVerification counts a payment gate result by final state.
func RecordPaymentVerification(state string) {
	counter(PaymentVerificationsTotal, map[string]string{"state": state})
}

// RecordCacheLookup counts report cache hits and misses.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	counter(ReportCacheTotal, map[string]string{"result": result})
}

func RecordVote(rating string) {
	counter(VotesTotal, map[string]string{"rating": rating})
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	counter(HealthCheckTotal, map[string]string{"check": checkName, "status": status})
	histogram(HealthCheckDuration, duration, map[string]string{"check": checkName})
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}
