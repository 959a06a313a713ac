package telemetry

import (
	"context"
	"errors"

	"org-credential-broker/internal/telemetry/domain"
)

// EventEmitter emits proxy events (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.ProxyEvent) error
}

// MultiEmitter sends each event to every non-nil emitter and joins their errors.
type MultiEmitter []EventEmitter

// Emit implements EventEmitter.
func (m MultiEmitter) Emit(ctx context.Context, event *domain.ProxyEvent) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
