package domain

import "errors"

// Identity is the control-plane user a bearer credential belongs to. It lives for one request.
type Identity struct {
	ID    string
	Email string
}

// Verification errors.
var (
	ErrMissingCredential          = errors.New("missing bearer")
	ErrInvalidCredential          = errors.New("invalid credential")
	ErrIdentityServiceUnavailable = errors.New("identity service unavailable")
)
