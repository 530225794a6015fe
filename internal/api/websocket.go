package api

import (
	"context"
	"net/http"
	"time"

	"github.com/datachat/console/internal/logger"
	"github.com/datachat/console/internal/session"
	"github.com/datachat/console/internal/shell"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing              = "ping"
	MsgTypeView              = "view"
	MsgTypeNavigate          = "navigate"
	MsgTypeSend              = "send"
	MsgTypeAsk               = "ask"
	MsgTypeSelect            = "select"
	MsgTypeChatWith          = "chat_with"
	MsgTypeToggleSuggestions = "toggle_suggestions"
	MsgTypeRemoveFile        = "remove_file"
	MsgTypeSubmitUpload      = "submit_upload"
	MsgTypeClearAll          = "clear_all"
	MsgTypeConfirm           = "confirm"
	MsgTypeCancel            = "cancel"
	MsgTypeDismiss           = "dismiss"

	// Server -> Client messages
	MsgTypePong  = "pong"
	MsgTypeError = "error"
)

// WSMessage is a client request.
type WSMessage struct {
	Type     string `json:"type"`
	Section  string `json:"section,omitempty"`
	Text     string `json:"text,omitempty"`
	ID       string `json:"id,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// WSResponse is pushed to the client after every state change.
type WSResponse struct {
	Type      string      `json:"type"`
	View      *shell.View `json:"view,omitempty"`
	Message   string      `json:"message,omitempty"`
	Code      string      `json:"code,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// WebSocketHandler drives a session over a websocket. Each client message is
// dispatched, and the view is pushed once for the dispatch and once for
// every task result.
type WebSocketHandler struct {
	handler  *Handler
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(h *Handler) *WebSocketHandler {
	return &WebSocketHandler{
		handler: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// HandleWebSocket upgrades the connection and serves client messages until
// it closes.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	sess := wsh.handler.session(c)

	// The upgrade writes its own response, so a fresh cookie travels here.
	header := http.Header{}
	for _, v := range c.Response().Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", v)
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), header)
	if err != nil {
		return err
	}
	defer ws.Close()

	log := logger.WithFields(logrus.Fields{"component": "ws", "session": sess.ID})
	log.Debug("client connected")

	ctx := context.WithoutCancel(c.Request().Context())
	wsh.pushView(ws, sess)

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("connection error")
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			wsh.send(ws, WSResponse{Type: MsgTypePong})
		case MsgTypeView:
			wsh.pushView(ws, sess)
		default:
			act, ok := actionFor(msg)
			if !ok {
				wsh.sendError(ws, "Unknown message type: "+msg.Type, "INVALID_TYPE")
				continue
			}
			wsh.run(ctx, ws, sess, act)
		}
	}

	log.Debug("client disconnected")
	return nil
}

// run dispatches act and works off the resulting tasks. Tasks run outside
// the session lock so page loads of the same session are not held up.
func (wsh *WebSocketHandler) run(ctx context.Context, ws *websocket.Conn, sess *session.Session, act shell.Action) {
	var tasks []shell.Task
	sess.Do(func(app *shell.App) {
		tasks = app.Dispatch(act)
	})
	wsh.pushView(ws, sess)

	for len(tasks) > 0 {
		task := tasks[0]
		tasks = tasks[1:]
		result := task(ctx)
		sess.Do(func(app *shell.App) {
			tasks = append(tasks, app.Apply(result)...)
		})
		wsh.pushView(ws, sess)
	}
}

func actionFor(msg WSMessage) (shell.Action, bool) {
	switch msg.Type {
	case MsgTypeNavigate:
		section, ok := shell.ParseSection(msg.Section)
		if !ok {
			return nil, false
		}
		return shell.Navigate{Section: section}, true
	case MsgTypeSend:
		return shell.SendMessage{Text: msg.Text}, true
	case MsgTypeAsk:
		return shell.AskSuggestion{Text: msg.Text}, true
	case MsgTypeSelect:
		return shell.SelectSidebarDocument{ID: msg.ID, Filename: msg.Filename}, true
	case MsgTypeChatWith:
		return shell.ChatWithDocument{ID: msg.ID, Filename: msg.Filename}, true
	case MsgTypeToggleSuggestions:
		return shell.ToggleSuggestions{}, true
	case MsgTypeRemoveFile:
		return shell.RemoveFile{}, true
	case MsgTypeSubmitUpload:
		return shell.SubmitUpload{}, true
	case MsgTypeClearAll:
		return shell.ClearAllData{}, true
	case MsgTypeConfirm:
		return shell.ConfirmModal{}, true
	case MsgTypeCancel:
		return shell.CancelModal{}, true
	case MsgTypeDismiss:
		return shell.DismissNotice{ID: msg.ID}, true
	}
	return nil, false
}

func (wsh *WebSocketHandler) pushView(ws *websocket.Conn, sess *session.Session) {
	var v shell.View
	sess.Do(func(app *shell.App) {
		v = app.View()
	})
	wsh.send(ws, WSResponse{Type: MsgTypeView, View: &v})
}

func (wsh *WebSocketHandler) sendError(ws *websocket.Conn, message, code string) {
	wsh.send(ws, WSResponse{Type: MsgTypeError, Message: message, Code: code})
}

func (wsh *WebSocketHandler) send(ws *websocket.Conn, resp WSResponse) {
	resp.Timestamp = time.Now().UnixMilli()
	if err := ws.WriteJSON(resp); err != nil {
		logger.WithError(err).Debug("failed to send websocket message")
	}
}
