package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Org represents an organization. EncryptedDedicatedKey holds the tenant credential envelope
// and is empty until the tenant is provisioned.
type Org struct {
	ID                    string
	Name                  string
	EncryptedDedicatedKey string
	CreatedAt             time.Time
}

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	if _, err := uuid.Parse(o.ID); err != nil {
		return errors.New("id must be a UUID")
	}
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// ConnectionSettings are the plain-text coordinates of an organization's tenant backend.
type ConnectionSettings struct {
	OrgID           string
	TenantBaseURL   string
	TenantPublicKey string
	UpdatedAt       time.Time
}

// Complete reports whether both the base URL and the public key are set.
func (s *ConnectionSettings) Complete() bool {
	return s != nil && strings.TrimSpace(s.TenantBaseURL) != "" && strings.TrimSpace(s.TenantPublicKey) != ""
}

// TenantConnection is everything needed to reach a tenant, with the dedicated key still encrypted.
type TenantConnection struct {
	OrgID                 string
	TenantBaseURL         string
	TenantPublicKey       string
	EncryptedDedicatedKey string
}
