package otel

import (
	"context"
	"encoding/json"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"org-credential-broker/internal/telemetry"
	"org-credential-broker/internal/telemetry/domain"
)

const instrumentationName = "org-credential-broker/proxy"

// recordEmitter is the part of otellog.Logger the emitter needs.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger(instrumentationName))
}

// NewEventEmitterWithLogger returns an emitter writing to logger.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.ProxyEvent) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

func severityFor(status int) otellog.Severity {
	switch {
	case status >= 500:
		return otellog.SeverityError
	case status >= 400:
		return otellog.SeverityWarn
	default:
		return otellog.SeverityInfo
	}
}

// Emit converts the event to an OTel log record: the JSON event as body, ids as attributes.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.ProxyEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetObservedTimestamp(time.Now().UTC())
	rec.SetSeverity(severityFor(event.Status))
	rec.SetEventName(event.EventType)

	if body, err := json.Marshal(event); err == nil {
		rec.SetBody(otellog.BytesValue(body))
	}
	for k, v := range map[string]string{
		"org_id":     event.OrgID,
		"user_id":    event.UserID,
		"event_type": event.EventType,
		"source":     event.Source,
		"action":     event.Action,
		"outcome":    event.Outcome,
		"request_id": event.RequestID,
	} {
		if v != "" {
			rec.AddAttributes(otellog.String(k, v))
		}
	}
	rec.AddAttributes(
		otellog.Int("http.status_code", event.Status),
		otellog.Int64("duration_ms", event.DurationMs),
	)
	e.logger.Emit(ctx, rec)
	return nil
}
