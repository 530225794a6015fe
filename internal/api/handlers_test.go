package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/datachat/console/internal/apiclient"
	"github.com/datachat/console/internal/chat"
	"github.com/datachat/console/internal/session"
	"github.com/datachat/console/internal/shell"
	"github.com/datachat/console/internal/storage"
	"github.com/datachat/console/internal/testutil"
	"github.com/datachat/console/internal/web"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e        *echo.Echo
	fake     *testutil.FakeAPI
	sessions *session.Manager
	store    *storage.LocalStore
	cookie   *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	fake := testutil.NewFakeAPI()
	client := apiclient.New(apiclient.Config{BaseURL: fake.Start(t)})

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	sessions := session.NewManager(func() *shell.App {
		return shell.New(client, shell.Options{
			Suggestions: []string{"How many rows are there?"},
			Now:         func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) },
		})
	}, 10)
	t.Cleanup(sessions.Close)

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	SetupMiddleware(e, renderer)
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Sessions: sessions,
		Store:    store,
		Remote:   client,
		Version:  "test",
	}))

	return &testServer{e: e, fake: fake, sessions: sessions, store: store}
}

// do sends req with the session cookie, remembering the cookie the server sets.
func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == CookieName {
			s.cookie = ck
		}
	}
	return rec
}

func (s *testServer) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return s.do(req)
}

func (s *testServer) postFile(t *testing.T, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload/select", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return s.do(req)
}

func (s *testServer) app(t *testing.T, fn func(app *shell.App)) {
	t.Helper()
	require.NotNil(t, s.cookie, "no session cookie yet")
	sess, ok := s.sessions.Get(s.cookie.Value)
	require.True(t, ok)
	sess.Do(fn)
}

func TestHandleIndex(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.cookie)
	assert.True(t, srv.cookie.HttpOnly)
	assert.Contains(t, rec.Body.String(), "Upload data")
	assert.Contains(t, rec.Body.String(), "Which files can I upload?")
	assert.Equal(t, 1, srv.sessions.Len())

	// The cookie keeps the same session.
	srv.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 1, srv.sessions.Len())
}

func TestHandleNavigate(t *testing.T) {
	srv := newTestServer(t)
	srv.fake.AddDocument("sales.csv", 12)

	rec := srv.post(t, "/nav/documents", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, 1, srv.fake.Calls(http.MethodGet, "/structured-documents"))

	rec = srv.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "sales.csv")

	t.Run("unknown section", func(t *testing.T) {
		rec := srv.post(t, "/nav/settings", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "NOT_FOUND", body.Code)
	})
}

func TestUploadFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.postFile(t, "sales.csv", "region,total\nnorth,40\nsouth,2\n")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, srv.store.List(), 1)

	srv.app(t, func(app *shell.App) {
		require.NotNil(t, app.Upload().Pending)
		assert.Equal(t, "sales.csv", app.Upload().Pending.Name)
	})

	srv.post(t, "/upload/submit", nil)
	assert.Empty(t, srv.store.List(), "staged file released after upload")
	require.Len(t, srv.fake.Documents(), 1)

	srv.app(t, func(app *shell.App) {
		assert.Nil(t, app.Upload().Pending)
		assert.True(t, app.Notices().Modal().Open)
	})

	srv.post(t, "/modal/confirm", nil)
	srv.app(t, func(app *shell.App) {
		assert.Equal(t, shell.SectionChat, app.Section())
		assert.Equal(t, srv.fake.Documents()[0].ID, app.Chat().ActiveDocumentID)
	})
}

func TestUploadRejected(t *testing.T) {
	srv := newTestServer(t)

	srv.postFile(t, "notes.txt", "hello")
	assert.Empty(t, srv.store.List())
	srv.app(t, func(app *shell.App) {
		assert.Nil(t, app.Upload().Pending)
		assert.NotEmpty(t, app.Notices().Active())
	})
}

func TestUploadRemove(t *testing.T) {
	srv := newTestServer(t)

	srv.postFile(t, "sales.csv", "region,total\nnorth,40\n")
	require.Len(t, srv.store.List(), 1)

	srv.post(t, "/upload/remove", nil)
	assert.Empty(t, srv.store.List())
	assert.Equal(t, 0, srv.fake.Calls(http.MethodPost, "/upload-structured-data"))
}

func TestChatFlow(t *testing.T) {
	srv := newTestServer(t)
	doc := srv.fake.AddDocument("sales.csv", 12)

	srv.post(t, "/documents/"+doc.ID+"/chat", url.Values{"filename": {doc.Filename}})
	srv.post(t, "/chat/send", url.Values{"text": {"What is the total?"}})
	srv.post(t, "/chat/ask", url.Values{"text": {"How many rows are there?"}})

	reqs := srv.fake.ChatRequests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "What is the total?", reqs[0].Message)
	assert.Equal(t, doc.ID, reqs[0].StructuredDocumentID)
	assert.True(t, reqs[1].IsPredefined)

	srv.app(t, func(app *shell.App) {
		assert.Len(t, app.Chat().Transcript, 4)
		assert.Equal(t, chat.Selected, app.Chat().Status)
	})

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/api/view", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "chat", view["Section"])
}

func TestClearData(t *testing.T) {
	srv := newTestServer(t)
	srv.fake.AddDocument("sales.csv", 12)

	srv.post(t, "/data/clear", nil)
	srv.post(t, "/modal/cancel", nil)
	assert.Len(t, srv.fake.Documents(), 1)

	srv.post(t, "/data/clear", nil)
	srv.post(t, "/modal/confirm", nil)
	assert.Empty(t, srv.fake.Documents())
	srv.app(t, func(app *shell.App) {
		assert.Equal(t, shell.SectionUpload, app.Section())
	})
}

func TestDismissNotice(t *testing.T) {
	srv := newTestServer(t)

	srv.post(t, "/upload/submit", nil)
	var id string
	srv.app(t, func(app *shell.App) {
		notices := app.Notices().Active()
		require.Len(t, notices, 1)
		id = notices[0].ID
	})

	srv.post(t, "/notices/"+id+"/dismiss", nil)
	srv.app(t, func(app *shell.App) {
		assert.Empty(t, app.Notices().Active())
	})
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	srv.fake.AddDocument("sales.csv", 12)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	api, ok := body["api"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "healthy", api["status"])
	stats, ok := body["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), stats["documents"])
	assert.Equal(t, float64(0), stats["chats"])
	assert.Equal(t, 1, srv.fake.Calls(http.MethodGet, "/system-stats"))

	t.Run("stats unavailable", func(t *testing.T) {
		srv.fake.Fail(http.MethodGet, "/system-stats", testutil.Failure{Status: http.StatusInternalServerError})
		defer srv.fake.Recover(http.MethodGet, "/system-stats")

		rec := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotContains(t, body, "stats")
		assert.Contains(t, body, "api")
	})

	t.Run("api down", func(t *testing.T) {
		srv.fake.Fail(http.MethodGet, "/health", testutil.Failure{Status: http.StatusServiceUnavailable})

		rec := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		api := body["api"].(map[string]any)
		assert.Equal(t, "unreachable", api["status"])
		assert.NotContains(t, body, "stats")
	})
}
