package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range testCases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	return m
}

func TestNew_StdoutOnly(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, "test", nil)

	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered, got %q", buf.String())
	}
	log.Info("proxy dispatched", "org_id", "org1")
	m := decodeLine(t, &buf)
	if m["msg"] != "proxy dispatched" || m["org_id"] != "org1" {
		t.Errorf("unexpected line: %v", m)
	}
	if _, ok := m["trace_id"]; ok {
		t.Error("trace_id should be absent without a span")
	}
}

func TestNew_WithProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn, "test", provider)
	if log.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	log.Warn("denied", "action", "DELETE_EMPLOYEE")
	if m := decodeLine(t, &buf); m["action"] != "DELETE_EMPLOYEE" {
		t.Errorf("unexpected line: %v", m)
	}
}

func TestTraceContextHandler_AddsIDs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewTraceContextHandler(slog.NewJSONHandler(&buf, nil)))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.InfoContext(ctx, "hello")
	m := decodeLine(t, &buf)
	if m["trace_id"] != traceID.String() || m["span_id"] != spanID.String() {
		t.Errorf("trace ids missing: %v", m)
	}
}

func TestMultiHandler_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h).With("svc", "broker").WithGroup("req")

	log.Info("only a", "id", 1)
	if a.Len() == 0 || b.Len() != 0 {
		t.Fatalf("a=%q b=%q", a.String(), b.String())
	}
	m := decodeLine(t, &a)
	if m["svc"] != "broker" {
		t.Errorf("WithAttrs lost: %v", m)
	}
	if grp, ok := m["req"].(map[string]any); !ok || grp["id"] != float64(1) {
		t.Errorf("WithGroup lost: %v", m)
	}

	a.Reset()
	log.Error("both")
	if a.Len() == 0 || b.Len() == 0 {
		t.Error("error should reach both handlers")
	}
}
