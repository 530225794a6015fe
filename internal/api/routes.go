// routes.go - Route registration helpers
package api

import (
	"github.com/datachat/console/internal/session"
	"github.com/datachat/console/internal/storage"
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Sessions *session.Manager
	Store    storage.Store
	Remote   HealthChecker
	Version  string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Console ConsoleHandler
	Live    LiveHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	console := NewHandler(deps.Sessions, deps.Store, deps.Version)
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Remote, deps.Sessions),
		Console: console,
		Live:    NewWebSocketHandler(console),
	}
}

// RegisterRoutes registers all console routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/health", handlers.Health.HandleHealth)

	con := handlers.Console
	e.GET("/", con.HandleIndex)
	e.GET("/api/view", con.HandleView)
	e.GET("/ws", handlers.Live.HandleWebSocket)

	e.POST("/nav/:section", con.HandleNavigate)

	uploadGroup := e.Group("/upload")
	uploadGroup.POST("/select", con.HandleSelectFile)
	uploadGroup.POST("/remove", con.HandleRemoveFile)
	uploadGroup.POST("/submit", con.HandleSubmitUpload)

	e.POST("/documents/:id/chat", con.HandleChatWithDocument)

	chatGroup := e.Group("/chat")
	chatGroup.POST("/select/:id", con.HandleSelectSidebarDocument)
	chatGroup.POST("/send", con.HandleSendMessage)
	chatGroup.POST("/suggestions", con.HandleToggleSuggestions)
	chatGroup.POST("/ask", con.HandleAskSuggestion)

	e.POST("/data/clear", con.HandleClearData)
	e.POST("/modal/confirm", con.HandleConfirmModal)
	e.POST("/modal/cancel", con.HandleCancelModal)
	e.POST("/notices/:id/dismiss", con.HandleDismissNotice)
}

// SetupMiddleware configures the error handler and renderer
func SetupMiddleware(e *echo.Echo, renderer echo.Renderer) {
	e.HTTPErrorHandler = ErrorHandler
	e.Renderer = renderer
}
