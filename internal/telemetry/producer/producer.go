// Package producer defines the interface for shipping proxy events (e.g. to Kafka).
package producer

import (
	"context"

	"org-credential-broker/internal/telemetry/domain"
)

// Producer emits proxy events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, event *domain.ProxyEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
