package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestProxyMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewProxyMetrics(provider)
	if err != nil {
		t.Fatalf("NewProxyMetrics: %v", err)
	}
	ctx := context.Background()
	m.Record(ctx, "LIST_EMPLOYEES", "ok", 200, 15*time.Millisecond)
	m.Record(ctx, "LIST_EMPLOYEES", "ok", 200, 5*time.Millisecond)
	m.Record(ctx, "DELETE_EMPLOYEE", "forbidden", 403, time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var counter *metricdata.Sum[int64]
	var hist *metricdata.Histogram[float64]
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch md.Name {
			case "broker.proxy.requests":
				s := md.Data.(metricdata.Sum[int64])
				counter = &s
			case "broker.proxy.duration":
				h := md.Data.(metricdata.Histogram[float64])
				hist = &h
			}
		}
	}
	if counter == nil || hist == nil {
		t.Fatal("expected both instruments to be collected")
	}

	counts := map[string]int64{}
	for _, dp := range counter.DataPoints {
		action, _ := dp.Attributes.Value(attribute.Key("action"))
		counts[action.AsString()] += dp.Value
		if _, ok := dp.Attributes.Value(attribute.Key("org_id")); ok {
			t.Error("org_id must not be a metric attribute")
		}
	}
	if counts["LIST_EMPLOYEES"] != 2 || counts["DELETE_EMPLOYEE"] != 1 {
		t.Errorf("counts = %v", counts)
	}

	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	if total != 3 {
		t.Errorf("histogram count = %d, want 3", total)
	}
}

func TestProxyMetrics_NilIsNoop(t *testing.T) {
	var m *ProxyMetrics
	m.Record(context.Background(), "LIST_EMPLOYEES", "ok", 200, time.Millisecond)
}
