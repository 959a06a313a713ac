package domain

import "time"

// Outcome values recorded for a proxied action.
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
	OutcomeFailed  = "failed"
)

// AuditLog represents one proxy decision. Metadata is free text and never contains credentials.
type AuditLog struct {
	ID        string
	OrgID     string
	UserID    string
	Action    string
	Resource  string
	Outcome   string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
