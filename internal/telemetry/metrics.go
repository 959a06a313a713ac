package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "org-credential-broker/proxy"

// ProxyMetrics records per-request counters and latency for the proxy endpoint.
// A nil *ProxyMetrics is valid and records nothing.
type ProxyMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewProxyMetrics registers the proxy instruments on provider.
func NewProxyMetrics(provider metric.MeterProvider) (*ProxyMetrics, error) {
	meter := provider.Meter(meterName)
	requests, err := meter.Int64Counter("broker.proxy.requests",
		metric.WithDescription("Proxied action requests by outcome"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("broker.proxy.duration",
		metric.WithDescription("End-to-end proxy request latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &ProxyMetrics{requests: requests, duration: duration}, nil
}

// Record adds one request. orgID is deliberately not an attribute to keep cardinality bounded.
func (m *ProxyMetrics) Record(ctx context.Context, action, outcome string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
		attribute.Int("http.status_code", status),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}
