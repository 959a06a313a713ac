package tenant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultActionPath is where a tenant backend accepts dispatched actions.
	DefaultActionPath = "/functions/v1/tenant-action"

	maxResponseBody = 10 << 20
	maxErrorSnippet = 512
)

var (
	// ErrIncompleteTenantConfig is returned when a client is built without all three coordinates.
	ErrIncompleteTenantConfig = errors.New("incomplete tenant configuration")
	// ErrUpstreamUnavailable is returned when the tenant cannot be reached or answers unreadably.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrTenantRejected is returned when the tenant answers with a non-2xx status.
	ErrTenantRejected = errors.New("tenant rejected action")
)

// RejectedError carries the tenant's status and a truncated body for server-side logs.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("tenant returned status %d", e.StatusCode)
}

func (e *RejectedError) Unwrap() error { return ErrTenantRejected }

// Client dispatches one action per call to a single tenant backend. It holds the decrypted
// dedicated key and must not outlive the request that built it.
type Client struct {
	endpoint     string
	publicKey    string
	dedicatedKey string
	httpClient   *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client (shared transport, timeouts).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient builds a tenant-scoped client. baseURL, publicKey and dedicatedKey are all required;
// the dedicated key is the bearer credential and the public key only identifies the project.
func NewClient(baseURL, publicKey, dedicatedKey, actionPath string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" || strings.TrimSpace(publicKey) == "" || dedicatedKey == "" {
		return nil, ErrIncompleteTenantConfig
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, fmt.Errorf("%w: base url must be an absolute http(s) URL", ErrIncompleteTenantConfig)
	}
	if actionPath == "" {
		actionPath = DefaultActionPath
	}
	c := &Client{
		endpoint:     strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(actionPath, "/"),
		publicKey:    publicKey,
		dedicatedKey: dedicatedKey,
		httpClient:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type actionRequest struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatch sends exactly one POST. Mutations must not be replayed, so there is no retry.
func (c *Client) Dispatch(ctx context.Context, action string, payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	body, err := json.Marshal(actionRequest{Action: action, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode action: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.dedicatedKey)
	req.Header.Set("apikey", c.publicKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(raw)
		if len(snippet) > maxErrorSnippet {
			snippet = snippet[:maxErrorSnippet]
		}
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: snippet}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: response is not JSON", ErrUpstreamUnavailable)
	}
	return json.RawMessage(raw), nil
}

// Builder constructs per-request clients sharing one transport.
type Builder struct {
	httpClient *http.Client
	actionPath string
}

// NewBuilder returns a Builder whose clients use a tuned transport and the given timeout.
func NewBuilder(actionPath string, timeout time.Duration) *Builder {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return NewBuilderWithClient(actionPath, &http.Client{Timeout: timeout, Transport: transport})
}

// NewBuilderWithClient returns a Builder using hc for every client.
func NewBuilderWithClient(actionPath string, hc *http.Client) *Builder {
	return &Builder{httpClient: hc, actionPath: actionPath}
}

// Build returns a client for one tenant.
func (b *Builder) Build(baseURL, publicKey, dedicatedKey string) (*Client, error) {
	return NewClient(baseURL, publicKey, dedicatedKey, b.actionPath, WithHTTPClient(b.httpClient))
}
