// interfaces.go - Handler interface definitions
package api

import (
	"context"

	"github.com/datachat/console/internal/models"
	"github.com/labstack/echo/v4"
)

// ConsoleHandler renders the console page and turns form posts into actions.
type ConsoleHandler interface {
	HandleIndex(c echo.Context) error
	HandleView(c echo.Context) error
	HandleNavigate(c echo.Context) error
	HandleSelectFile(c echo.Context) error
	HandleRemoveFile(c echo.Context) error
	HandleSubmitUpload(c echo.Context) error
	HandleChatWithDocument(c echo.Context) error
	HandleSelectSidebarDocument(c echo.Context) error
	HandleSendMessage(c echo.Context) error
	HandleToggleSuggestions(c echo.Context) error
	HandleAskSuggestion(c echo.Context) error
	HandleClearData(c echo.Context) error
	HandleConfirmModal(c echo.Context) error
	HandleCancelModal(c echo.Context) error
	HandleDismissNotice(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// LiveHandler serves the websocket protocol
type LiveHandler interface {
	HandleWebSocket(c echo.Context) error
}

// HealthChecker probes the remote API.
type HealthChecker interface {
	Health(ctx context.Context) (*models.Health, error)
	SystemStats(ctx context.Context) (*models.SystemStats, error)
}
