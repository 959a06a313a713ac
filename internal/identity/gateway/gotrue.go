package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"org-credential-broker/internal/identity/domain"
)

const userPath = "/auth/v1/user"

// maxUserBody caps how much of the identity response is read.
const maxUserBody = 1 << 20

// GoTrueGateway resolves a control-plane access token to its user through the
// auth service's "get user" endpoint.
type GoTrueGateway struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewGoTrueGateway creates a gateway with a tuned HTTP transport.
func NewGoTrueGateway(baseURL, anonKey string, timeout time.Duration) *GoTrueGateway {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
	return NewGoTrueGatewayWithClient(baseURL, anonKey, &http.Client{
		Timeout:   timeout,
		Transport: transport,
	})
}

// NewGoTrueGatewayWithClient creates a gateway using the given client.
func NewGoTrueGatewayWithClient(baseURL, anonKey string, client *http.Client) *GoTrueGateway {
	return &GoTrueGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: client,
	}
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// GetUser issues exactly one request for token. Rejections map to ErrInvalidCredential;
// transport failures and 5xx map to ErrIdentityServiceUnavailable.
func (g *GoTrueGateway) GetUser(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrMissingCredential
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+userPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIdentityServiceUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", g.anonKey)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIdentityServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: auth service returned status %d", domain.ErrIdentityServiceUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: auth service returned status %d", domain.ErrInvalidCredential, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: auth service returned status %d", domain.ErrIdentityServiceUnavailable, resp.StatusCode)
	}

	var u userResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserBody)).Decode(&u); err != nil {
		return nil, fmt.Errorf("%w: decode user: %w", domain.ErrInvalidCredential, err)
	}
	if strings.TrimSpace(u.ID) == "" {
		return nil, fmt.Errorf("%w: user response has no id", domain.ErrInvalidCredential)
	}
	return &domain.Identity{ID: u.ID, Email: u.Email}, nil
}
