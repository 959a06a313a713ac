// Package server assembles the broker's HTTP and gRPC servers.
package server

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	healthhandler "org-credential-broker/internal/health/handler"
	proxyhandler "org-credential-broker/internal/proxy/handler"
)

// HTTPDeps holds what NewHTTP mounts. RateLimiter may be nil to disable limiting.
// A nil IPExtractor uses the TCP peer address.
type HTTPDeps struct {
	ServiceName string
	Proxy       *proxyhandler.Handler
	Health      *healthhandler.HTTP
	RateLimiter *RateLimiter
	IPExtractor echo.IPExtractor
	Logger      *slog.Logger
}

// ClientIPExtractor returns how the client IP is derived for rate limiting and audit rows.
// With no trusted ranges, forwarding headers are ignored. Otherwise X-Forwarded-For is honored
// only across the listed proxy ranges; loopback and private networks are not trusted implicitly.
func ClientIPExtractor(trustedCIDRs []string) (echo.IPExtractor, error) {
	if len(trustedCIDRs) == 0 {
		return echo.ExtractIPDirect(), nil
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedCIDRs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}

// NewHTTP returns the browser-facing echo server: probes plus the proxy route.
func NewHTTP(deps HTTPDeps) *echo.Echo {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = deps.IPExtractor
	if e.IPExtractor == nil {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(SecurityHeaders())
	if deps.ServiceName != "" {
		e.Use(otelecho.Middleware(deps.ServiceName))
	}
	e.Use(requestLogger(log))

	if deps.Health != nil {
		deps.Health.Register(e)
	}
	if deps.Proxy != nil {
		var mw []echo.MiddlewareFunc
		if deps.RateLimiter != nil {
			mw = append(mw, deps.RateLimiter.Middleware())
		}
		deps.Proxy.Register(e, mw...)
	}
	return e
}

// requestLogger logs one line per request. Headers are never logged.
func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/healthz" || p == "/readyz"
		},
		LogStatus:    true,
		LogURI:       true,
		LogError:     true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			rctx := c.Request().Context()
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
				"remote_ip", v.RemoteIP,
			}
			if v.Error == nil {
				log.InfoContext(rctx, "request completed", attrs...)
			} else {
				log.WarnContext(rctx, "request failed", append(attrs, "error", v.Error.Error())...)
			}
			return nil
		},
	})
}

// SecurityHeaders adds security-related HTTP headers to all responses.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")
			return next(c)
		}
	}
}
