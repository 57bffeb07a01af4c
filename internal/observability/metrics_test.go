package observability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetricsBindsFreePort(t *testing.T) {
	if err := InitMetrics("aptoseidon", 0, "test"); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "permission") || strings.Contains(err.Error(), "not permitted") {
			t.Skipf("loopback binds not permitted: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(func() { _ = ShutdownMetrics() })

	assert.NotNil(t, PrometheusExporter)
	assert.NotNil(t, TelemetrySystem)
	assert.Greater(t, GetMetricsPort(), 0)
}

func TestShutdownMetricsWithoutInit(t *testing.T) {
	require.NoError(t, ShutdownMetrics())
	assert.Nil(t, TelemetrySystem)
	assert.Zero(t, GetMetricsPort())
}

func TestPortOf(t *testing.T) {
	port, err := portOf("[::]:9464")
	require.NoError(t, err)
	assert.Equal(t, 9464, port)

	_, err = portOf("no-port")
	assert.Error(t, err)
}
