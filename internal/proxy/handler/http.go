// Package handler exposes the Action Proxy over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"org-credential-broker/internal/bearer"
	"org-credential-broker/internal/platform/requestctx"
	"org-credential-broker/internal/proxy/domain"
	"org-credential-broker/internal/proxy/service"
)

// ProxyPath is the inbound route for proxied actions.
const ProxyPath = "/api/v1/org-proxy"

const maxRequestBody = 1 << 20

// Dispatcher runs one proxy call.
type Dispatcher interface {
	Dispatch(ctx context.Context, call service.Call) (json.RawMessage, error)
}

// Handler serves POST /api/v1/org-proxy.
type Handler struct {
	svc Dispatcher
}

// NewHandler returns a Handler backed by svc.
func NewHandler(svc Dispatcher) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the proxy route on e with any extra middleware (e.g. rate limiting).
func (h *Handler) Register(e *echo.Echo, m ...echo.MiddlewareFunc) {
	e.POST(ProxyPath, h.OrgProxy, m...)
}

// OrgProxy decodes {action, orgId, payload}, runs the call and relays the tenant's JSON result.
// Errors are returned as {message} with the status from domain.Classify.
func (h *Handler) OrgProxy(c echo.Context) error {
	r := c.Request()
	ctx := requestctx.WithClientIP(r.Context(), c.RealIP())
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		ctx = requestctx.WithRequestID(ctx, id)
	}

	req, err := decodeRequest(r.Body)
	if err != nil {
		return mapProxyError(err)
	}

	result, err := h.svc.Dispatch(ctx, service.Call{
		Headers: bearer.HTTPHeader(r.Header),
		Request: req,
	})
	if err != nil {
		return mapProxyError(err)
	}
	return c.JSONBlob(http.StatusOK, result)
}

func decodeRequest(body io.Reader) (domain.Request, error) {
	var req domain.Request
	raw, err := io.ReadAll(io.LimitReader(body, maxRequestBody+1))
	if err != nil {
		return req, errors.Join(domain.ErrBadRequest, err)
	}
	if len(raw) > maxRequestBody {
		return req, errors.Join(domain.ErrBadRequest, errors.New("body too large"))
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, errors.Join(domain.ErrBadRequest, err)
	}
	return req, nil
}

// mapProxyError converts a proxy error into an echo.HTTPError carrying only the generic message.
func mapProxyError(err error) *echo.HTTPError {
	f := domain.Classify(err)
	return echo.NewHTTPError(f.Status, f.Message).SetInternal(err)
}
