package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aptoseidon/aptoseidon/internal/errors"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckHealth(context.Context) error { return s.err }

// slowChecker blocks until the probe deadline passes.
type slowChecker struct{}

func (slowChecker) CheckHealth(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestHealthHandlerHealthy(t *testing.T) {
	manager := NewHealthManager("0.3.0")
	manager.RegisterChecker("store", stubChecker{})
	manager.RegisterChecker("signal_handlers", stubChecker{})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, checkHealthy, resp.Status)
	assert.Equal(t, "0.3.0", resp.Version)
	assert.Equal(t, map[string]string{"store": checkHealthy, "signal_handlers": checkHealthy}, resp.Checks)
}

func TestReadinessFailsWhenStoreDown(t *testing.T) {
	manager := NewHealthManager("0.3.0")
	manager.RegisterChecker("store", stubChecker{err: errors.New("database is locked")})

	rec := httptest.NewRecorder()
	manager.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, apperrors.CodeUnavailable, resp.Error.Code)
	assert.Equal(t, "ready", resp.Error.Details["probe"])
	checks, ok := resp.Error.Details["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, checkUnhealthy, checks["store"])
}

func TestLivenessProbeShape(t *testing.T) {
	manager := NewHealthManager("dev")

	rec := httptest.NewRecorder()
	manager.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProbeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, checkHealthy, resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestRunHealthChecksAfterDeadline(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("a_slow", slowChecker{})
	manager.RegisterChecker("b_store", stubChecker{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checks := manager.runHealthChecks(ctx)
	assert.Equal(t, checkTimeout, checks["a_slow"])
	assert.Equal(t, checkTimeout, checks["b_store"])
	assert.Equal(t, checkDegraded, manager.determineOverallStatus(checks))
}

func TestDetermineOverallStatus(t *testing.T) {
	manager := NewHealthManager("dev")

	tests := []struct {
		name   string
		checks map[string]string
		want   string
	}{
		{name: "no checks", checks: nil, want: checkHealthy},
		{name: "timeout degrades", checks: map[string]string{"store": checkTimeout}, want: checkDegraded},
		{name: "unhealthy wins", checks: map[string]string{"store": checkUnhealthy, "telemetry": checkDegraded}, want: checkUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, manager.determineOverallStatus(tt.checks))
		})
	}
}

func TestPackageHandlersWithoutManager(t *testing.T) {
	original := globalHealthManager
	globalHealthManager = nil
	t.Cleanup(func() { globalHealthManager = original })

	rec := httptest.NewRecorder()
	StartupHandler(rec, httptest.NewRequest(http.MethodGet, "/health/startup", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
