// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/datachat/console/internal/session"
	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	remote   HealthChecker
	sessions *session.Manager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, remote HealthChecker, sessions *session.Manager) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		remote:   remote,
		sessions: sessions,
	}
}

// HandleHealth reports console status, the remote API's health and its
// document and chat counters. The console itself stays "ok" when the API is
// down; the API part says why.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":   "ok",
		"version":  h.version,
		"sessions": h.sessions.Len(),
	}

	ctx := c.Request().Context()
	health, err := h.remote.Health(ctx)
	if err != nil {
		resp["api"] = map[string]string{"status": "unreachable", "error": err.Error()}
		return c.JSON(http.StatusOK, resp)
	}
	resp["api"] = health

	// Counters are informational; a failing stats call leaves them out.
	if stats, err := h.remote.SystemStats(ctx); err == nil {
		resp["stats"] = map[string]int{
			"documents": stats.TotalStructuredDocuments,
			"chats":     stats.TotalChats,
		}
	}
	return c.JSON(http.StatusOK, resp)
}
