package observability

import (
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// DefaultMetricsPort is used when the exporter's bound port cannot be read.
const DefaultMetricsPort = 9090

var (
	// TelemetrySystem receives request, source and error metrics. Nil until
	// InitMetrics succeeds; emitters treat nil as disabled.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the scrape endpoint on its own port.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort atomic.Int64
)

// InitMetrics starts the Prometheus exporter on port (0 picks a free port)
// and routes telemetry through it. Metric names are prefixed with the first
// namespace, or serviceName when none is given.
func InitMetrics(serviceName string, port int, namespace ...string) error {
	if port < 0 {
		port = 0
	}
	prefix := serviceName
	if len(namespace) > 0 && namespace[0] != "" {
		prefix = namespace[0]
	}

	exporter := exporters.NewPrometheusExporter(prefix, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}

	bound, err := portOf(exporter.GetAddr())
	switch {
	case err == nil && bound > 0:
		metricsPort.Store(int64(bound))
	case port != 0:
		metricsPort.Store(int64(port))
	default:
		metricsPort.Store(DefaultMetricsPort)
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		_ = exporter.Stop()
		return fmt.Errorf("telemetry system: %w", err)
	}

	PrometheusExporter = exporter
	TelemetrySystem = sys
	return nil
}

// ShutdownMetrics stops the exporter and disables telemetry.
func ShutdownMetrics() error {
	exporter := PrometheusExporter
	PrometheusExporter = nil
	TelemetrySystem = nil
	metricsPort.Store(0)
	if exporter == nil {
		return nil
	}
	return exporter.Stop()
}

// GetMetricsPort returns the exporter's listening port, or 0 before
// InitMetrics.
func GetMetricsPort() int {
	return int(metricsPort.Load())
}

func portOf(addr string) (int, error) {
	_, raw, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}
