package domain

import "time"

// EventType values for proxy events.
const (
	EventTypeProxyDispatch = "proxy.dispatch"
	EventTypeProxyDenied   = "proxy.denied"
	EventTypeProxyFailed   = "proxy.failed"
)

// Source identifies the emitting surface.
const SourceOrgProxy = "org-proxy"

// ProxyEvent describes one proxied call after it finished. It never carries credentials,
// payloads or tenant responses.
type ProxyEvent struct {
	ID         string    `json:"id"`
	EventType  string    `json:"eventType"`
	Source     string    `json:"source"`
	OrgID      string    `json:"orgId,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	Action     string    `json:"action"`
	Outcome    string    `json:"outcome"`
	Status     int       `json:"status"`
	DurationMs int64     `json:"durationMs"`
	RequestID  string    `json:"requestId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
