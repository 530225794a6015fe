package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/datachat/console/internal/logger"
	"github.com/datachat/console/internal/session"
	"github.com/datachat/console/internal/shell"
	"github.com/datachat/console/internal/storage"
	"github.com/datachat/console/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// CookieName holds the browser's session id.
const CookieName = "datachat_session"

// Page is the data handed to the page template.
type Page struct {
	View    shell.View
	Version string
}

// Handler serves the browser console.
type Handler struct {
	sessions *session.Manager
	store    storage.Store
	version  string
}

// NewHandler creates a console handler.
func NewHandler(sessions *session.Manager, store storage.Store, version string) *Handler {
	return &Handler{
		sessions: sessions,
		store:    store,
		version:  version,
	}
}

// session returns the caller's session, starting one and setting the cookie
// when the request carries none or an expired one.
func (h *Handler) session(c echo.Context) *session.Session {
	var id string
	if ck, err := c.Cookie(CookieName); err == nil {
		id = ck.Value
	}

	sess, created := h.sessions.Resolve(id)
	if created {
		c.SetCookie(&http.Cookie{
			Name:     CookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// taskContext detaches network work from the request so a closed tab does
// not abort a call that is already on its way.
func taskContext(c echo.Context) context.Context {
	return context.WithoutCancel(c.Request().Context())
}

// dispatch runs act to completion and sends the browser back to the page.
func (h *Handler) dispatch(c echo.Context, act shell.Action) error {
	ctx := taskContext(c)
	h.session(c).Do(func(app *shell.App) {
		app.Do(ctx, act)
	})
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) view(c echo.Context) shell.View {
	var v shell.View
	h.session(c).Do(func(app *shell.App) {
		v = app.View()
	})
	return v
}

// HandleIndex renders the console.
func (h *Handler) HandleIndex(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", Page{View: h.view(c), Version: h.version})
}

// HandleView returns the view model as JSON.
func (h *Handler) HandleView(c echo.Context) error {
	return c.JSON(http.StatusOK, h.view(c))
}

// HandleNavigate switches section.
func (h *Handler) HandleNavigate(c echo.Context) error {
	name := c.Param("section")
	section, ok := shell.ParseSection(name)
	if !ok {
		return NewNotFoundError("section", name)
	}
	return h.dispatch(c, shell.Navigate{Section: section})
}

// HandleSelectFile stages the posted file. A post without a file clears the
// selection.
func (h *Handler) HandleSelectFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return h.dispatch(c, shell.SelectFiles{})
	}
	if err != nil {
		return NewBadRequestError("Invalid file upload", err)
	}

	src, err := fh.Open()
	if err != nil {
		return NewBadRequestError("Failed to read uploaded file", err)
	}
	defer src.Close()

	staged, err := h.store.Save(fh.Filename, src)
	if err != nil {
		return NewInternalError("Failed to stage file", err)
	}

	return h.dispatch(c, shell.SelectFiles{Files: []upload.File{h.stagedFile(staged)}})
}

func (h *Handler) stagedFile(staged *storage.StagedFile) upload.File {
	id := staged.ID
	return upload.File{
		Name: staged.Name,
		Size: staged.Size,
		Open: func() (io.ReadCloser, error) {
			return h.store.Open(id)
		},
		Release: func() {
			if err := h.store.Delete(id); err != nil {
				logger.WithFields(logrus.Fields{"staged_id": id, "error": err}).Warn("failed to delete staged file")
			}
		},
	}
}

// HandleRemoveFile drops the staged file.
func (h *Handler) HandleRemoveFile(c echo.Context) error {
	return h.dispatch(c, shell.RemoveFile{})
}

// HandleSubmitUpload sends the staged file to the API.
func (h *Handler) HandleSubmitUpload(c echo.Context) error {
	return h.dispatch(c, shell.SubmitUpload{})
}

// HandleChatWithDocument starts a chat from the documents section.
func (h *Handler) HandleChatWithDocument(c echo.Context) error {
	return h.dispatch(c, shell.ChatWithDocument{ID: c.Param("id"), Filename: c.FormValue("filename")})
}

// HandleSelectSidebarDocument starts a chat from the chat sidebar.
func (h *Handler) HandleSelectSidebarDocument(c echo.Context) error {
	return h.dispatch(c, shell.SelectSidebarDocument{ID: c.Param("id"), Filename: c.FormValue("filename")})
}

// HandleSendMessage asks a typed question.
func (h *Handler) HandleSendMessage(c echo.Context) error {
	return h.dispatch(c, shell.SendMessage{Text: c.FormValue("text")})
}

// HandleToggleSuggestions shows or hides the suggested questions.
func (h *Handler) HandleToggleSuggestions(c echo.Context) error {
	return h.dispatch(c, shell.ToggleSuggestions{})
}

// HandleAskSuggestion asks a suggested question.
func (h *Handler) HandleAskSuggestion(c echo.Context) error {
	return h.dispatch(c, shell.AskSuggestion{Text: c.FormValue("text")})
}

// HandleClearData asks for confirmation before clearing all data.
func (h *Handler) HandleClearData(c echo.Context) error {
	return h.dispatch(c, shell.ClearAllData{})
}

func (h *Handler) HandleConfirmModal(c echo.Context) error {
	return h.dispatch(c, shell.ConfirmModal{})
}

func (h *Handler) HandleCancelModal(c echo.Context) error {
	return h.dispatch(c, shell.CancelModal{})
}

func (h *Handler) HandleDismissNotice(c echo.Context) error {
	return h.dispatch(c, shell.DismissNotice{ID: c.Param("id")})
}
