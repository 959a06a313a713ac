package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"org-credential-broker/internal/identity/domain"
)

// UserLookup is the control-plane "get user for token" operation.
type UserLookup interface {
	GetUser(ctx context.Context, token string) (*domain.Identity, error)
}

// Verifier turns a control-plane bearer token into an Identity.
type Verifier struct {
	users   UserLookup
	timeout time.Duration
}

// NewVerifier returns a Verifier. A non-positive timeout leaves only the caller's deadline.
func NewVerifier(users UserLookup, timeout time.Duration) *Verifier {
	return &Verifier{users: users, timeout: timeout}
}

// Verify calls the identity service once. Token validity is not transient, so there is no retry.
// Errors are ErrMissingCredential, ErrInvalidCredential or ErrIdentityServiceUnavailable.
func (v *Verifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrMissingCredential
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	id, err := v.users.GetUser(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredential), errors.Is(err, domain.ErrMissingCredential):
			return nil, err
		case errors.Is(err, domain.ErrIdentityServiceUnavailable):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %w", domain.ErrIdentityServiceUnavailable, err)
		}
	}
	if id == nil || strings.TrimSpace(id.ID) == "" {
		return nil, domain.ErrInvalidCredential
	}
	return id, nil
}
