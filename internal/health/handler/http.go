package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTP serves /healthz and /readyz.
type HTTP struct {
	checker *Checker
	log     *slog.Logger
}

func NewHTTP(checker *Checker, log *slog.Logger) *HTTP {
	if log == nil {
		log = slog.Default()
	}
	return &HTTP{checker: checker, log: log}
}

// Register mounts the probes on e.
func (h *HTTP) Register(e *echo.Echo) {
	e.GET("/healthz", h.Live)
	e.GET("/readyz", h.Ready)
}

// Live always reports ok while the process serves requests.
func (h *HTTP) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports 503 when a dependency check fails. The cause is logged, not returned.
func (h *HTTP) Ready(c echo.Context) error {
	if h.checker != nil {
		if err := h.checker.Ready(c.Request().Context()); err != nil {
			h.log.WarnContext(c.Request().Context(), "health: not ready", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
