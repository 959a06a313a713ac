// Package tenant resolves an organization's tenant backend and dispatches actions to it.
package tenant

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"org-credential-broker/internal/organization/domain"
)

var (
	// ErrMissingConnectionSettings means the tenant was never configured (no base URL or public key).
	ErrMissingConnectionSettings = errors.New("missing_connection_settings")
	// ErrMissingDedicatedKey means the tenant is mid-provisioning (no encrypted dedicated key yet).
	ErrMissingDedicatedKey = errors.New("missing_dedicated_key")
	// ErrConnectionBackend means the control-plane store could not be read.
	ErrConnectionBackend = errors.New("connection lookup failed")
)

// Store is the read side of the organization repository the resolver needs.
type Store interface {
	GetConnectionSettings(ctx context.Context, orgID string) (*domain.ConnectionSettings, error)
	GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error)
}

// Resolver loads the connection coordinates for an organization.
type Resolver struct {
	store Store
}

// NewResolver returns a Resolver reading from store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve runs the settings and organization lookups in parallel. Backend failures win over
// missing data; missing settings are reported before a missing dedicated key.
func (r *Resolver) Resolve(ctx context.Context, orgID string) (*domain.TenantConnection, error) {
	var (
		settings *domain.ConnectionSettings
		org      *domain.Org
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := r.store.GetConnectionSettings(gctx, orgID)
		if err != nil {
			return fmt.Errorf("connection settings: %w", err)
		}
		settings = s
		return nil
	})
	g.Go(func() error {
		o, err := r.store.GetOrganizationByID(gctx, orgID)
		if err != nil {
			return fmt.Errorf("organization: %w", err)
		}
		org = o
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionBackend, err)
	}

	if !settings.Complete() {
		return nil, ErrMissingConnectionSettings
	}
	if org == nil || org.EncryptedDedicatedKey == "" {
		return nil, ErrMissingDedicatedKey
	}
	return &domain.TenantConnection{
		OrgID:                 orgID,
		TenantBaseURL:         settings.TenantBaseURL,
		TenantPublicKey:       settings.TenantPublicKey,
		EncryptedDedicatedKey: org.EncryptedDedicatedKey,
	}, nil
}
