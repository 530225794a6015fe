package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/datachat/console/internal/shell"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *testServer) *websocket.Conn {
	t.Helper()
	hs := httptest.NewServer(srv.e)
	t.Cleanup(hs.Close)

	ws, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hs.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	for _, ck := range resp.Cookies() {
		if ck.Name == CookieName {
			srv.cookie = ck
		}
	}
	require.NotNil(t, srv.cookie, "upgrade response sets the session cookie")
	return ws
}

func readResponse(t *testing.T, ws *websocket.Conn) WSResponse {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var resp WSResponse
	require.NoError(t, ws.ReadJSON(&resp))
	return resp
}

// readUntil reads views until one satisfies ok.
func readUntil(t *testing.T, ws *websocket.Conn, ok func(v *shell.View) bool) *shell.View {
	t.Helper()
	for i := 0; i < 10; i++ {
		resp := readResponse(t, ws)
		if resp.Type == MsgTypeView && ok(resp.View) {
			return resp.View
		}
	}
	t.Fatal("expected view never arrived")
	return nil
}

func TestWebSocket_Navigate(t *testing.T) {
	srv := newTestServer(t)
	srv.fake.AddDocument("sales.csv", 12)
	ws := dialWS(t, srv)

	first := readResponse(t, ws)
	require.Equal(t, MsgTypeView, first.Type)
	assert.Equal(t, shell.SectionUpload, first.View.Section)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeNavigate, Section: "documents"}))

	loading := readResponse(t, ws)
	assert.True(t, loading.View.Loading)

	v := readUntil(t, ws, func(v *shell.View) bool { return !v.Loading })
	assert.Equal(t, shell.SectionDocuments, v.Section)
	require.Len(t, v.Documents.Cards, 1)
	assert.Equal(t, "sales.csv", v.Documents.Cards[0].Filename)
}

func TestWebSocket_Chat(t *testing.T) {
	srv := newTestServer(t)
	doc := srv.fake.AddDocument("sales.csv", 12)
	ws := dialWS(t, srv)
	readResponse(t, ws)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeChatWith, ID: doc.ID, Filename: doc.Filename}))
	readUntil(t, ws, func(v *shell.View) bool { return v.Section == shell.SectionChat && !v.Loading })

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeSend, Text: "What is the total?"}))
	readUntil(t, ws, func(v *shell.View) bool { return len(v.Chat.Messages) == 2 })

	require.Len(t, srv.fake.ChatRequests(), 1)
	srv.app(t, func(app *shell.App) {
		assert.Len(t, app.Chat().Transcript, 2)
	})
}

func TestWebSocket_PingAndUnknown(t *testing.T) {
	srv := newTestServer(t)
	ws := dialWS(t, srv)
	readResponse(t, ws)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))
	assert.Equal(t, MsgTypePong, readResponse(t, ws).Type)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: "upload:init"}))
	resp := readResponse(t, ws)
	assert.Equal(t, MsgTypeError, resp.Type)
	assert.Equal(t, "INVALID_TYPE", resp.Code)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeNavigate, Section: "settings"}))
	assert.Equal(t, MsgTypeError, readResponse(t, ws).Type)
}

func TestWebSocket_SharesSessionWithPages(t *testing.T) {
	srv := newTestServer(t)
	ws := dialWS(t, srv)
	readResponse(t, ws)

	srv.post(t, "/nav/faq", nil)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeView}))
	assert.Equal(t, shell.SectionFAQ, readResponse(t, ws).View.Section)
	assert.Equal(t, 1, srv.sessions.Len())
}
