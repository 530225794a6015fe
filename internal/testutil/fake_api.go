// fake_api.go - In-memory stand-in for the structured data chat API
package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/datachat/console/internal/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// previewRows is how many rows an upload response echoes back.
const previewRows = 5

// Failure makes an endpoint answer with an error.
type Failure struct {
	Status int
	// Detail is sent as {"detail": ...}. An empty Detail sends a plain text body.
	Detail string
}

// Responder produces the answer text for a chat turn.
type Responder func(req models.ChatRequest, doc models.StructuredDocument, turn int) string

// FakeAPI serves the remote API endpoints from memory and counts requests.
// Chat turns follow the real service: the first turn on a document answers
// from the data and announces internet search for the next one.
type FakeAPI struct {
	Echo *echo.Echo

	mu        sync.Mutex
	docs      []models.StructuredDocument
	history   []models.HistoryEntry
	turns     map[string]int
	calls     map[string]int
	failures  map[string]Failure
	chats     []models.ChatRequest
	responder Responder
	now       func() time.Time
}

// NewFakeAPI creates an empty fake with its routes registered.
func NewFakeAPI() *FakeAPI {
	f := &FakeAPI{
		Echo:     echo.New(),
		turns:    make(map[string]int),
		calls:    make(map[string]int),
		failures: make(map[string]Failure),
		now:      time.Now,
	}
	f.Echo.HideBanner = true
	f.Echo.HidePort = true
	f.Echo.Pre(f.count)

	f.Echo.GET("/health", f.handleHealth)
	f.Echo.GET("/system-stats", f.handleSystemStats)
	f.Echo.POST("/upload-structured-data", f.handleUpload)
	f.Echo.GET("/structured-documents", f.handleListDocuments)
	f.Echo.POST("/chat", f.handleChat)
	f.Echo.GET("/history", f.handleHistory)
	f.Echo.DELETE("/clear-all-data", f.handleClearAll)
	return f
}

// Start serves the fake on a local listener until the test ends and returns its base URL.
func (f *FakeAPI) Start(t testing.TB) string {
	t.Helper()
	srv := httptest.NewServer(f.Echo)
	t.Cleanup(srv.Close)
	return srv.URL
}

// SetResponder replaces the default answer text.
func (f *FakeAPI) SetResponder(r Responder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responder = r
}

// SetClock replaces the time source used for timestamps.
func (f *FakeAPI) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Fail makes method+path fail until Recover is called.
func (f *FakeAPI) Fail(method, path string, failure Failure) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key(method, path)] = failure
}

// Recover removes an injected failure.
func (f *FakeAPI) Recover(method, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, key(method, path))
}

// Calls returns how many requests reached method+path, failed ones included.
func (f *FakeAPI) Calls(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key(method, path)]
}

// ChatRequests returns every chat request received, in order.
func (f *FakeAPI) ChatRequests() []models.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ChatRequest, len(f.chats))
	copy(out, f.chats)
	return out
}

// AddDocument seeds a document as if it had been uploaded.
func (f *FakeAPI) AddDocument(filename string, rows int) models.StructuredDocument {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := models.StructuredDocument{
		ID:         uuid.New().String(),
		Filename:   filename,
		UploadDate: f.timestamp(),
		RowCount:   rows,
	}
	f.docs = append(f.docs, doc)
	return doc
}

// RemoveDocument deletes a document behind the client's back.
func (f *FakeAPI) RemoveDocument(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.docs {
		if d.ID == id {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return
		}
	}
}

// Documents returns the stored documents.
func (f *FakeAPI) Documents() []models.StructuredDocument {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.StructuredDocument, len(f.docs))
	copy(out, f.docs)
	return out
}

func key(method, path string) string {
	return method + " " + path
}

// timestamp uses the API's microsecond layout; callers hold f.mu.
func (f *FakeAPI) timestamp() string {
	return f.now().Format("2006-01-02T15:04:05.000000")
}

func (f *FakeAPI) count(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		k := key(c.Request().Method, c.Request().URL.Path)

		f.mu.Lock()
		f.calls[k]++
		failure, failing := f.failures[k]
		f.mu.Unlock()

		if !failing {
			return next(c)
		}
		if failure.Detail == "" {
			return c.String(failure.Status, http.StatusText(failure.Status))
		}
		return c.JSON(failure.Status, map[string]string{"detail": failure.Detail})
	}
}

func (f *FakeAPI) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, models.Health{Status: "healthy", GroqAPI: "fake", Database: "memory"})
}

func (f *FakeAPI) handleSystemStats(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := models.SystemStats{
		TotalStructuredDocuments: len(f.docs),
		TotalChats:               len(f.history),
		RecentActivity:           []models.Activity{},
	}
	for _, h := range f.history {
		stats.RecentActivity = append(stats.RecentActivity, models.Activity{
			Type:        "chat",
			Description: "Asked: " + h.Message,
			Timestamp:   h.Timestamp,
		})
	}
	for _, d := range f.docs {
		stats.RecentActivity = append(stats.RecentActivity, models.Activity{
			Type:        "upload_structured_data",
			Description: "Uploaded Data: " + d.Filename,
			Timestamp:   d.UploadDate,
		})
	}
	return c.JSON(http.StatusOK, stats)
}

func (f *FakeAPI) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"detail": "field 'file' is required"})
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".xlsx" && ext != ".xls" && ext != ".csv" {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "Only .xlsx, .xls or .csv files are allowed."})
	}

	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	rows, preview := 0, []map[string]any{}
	if ext == ".csv" {
		rows, preview, err = readCSV(data)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"detail": fmt.Sprintf("Failed to process structured data file: %v", err),
			})
		}
	}

	f.mu.Lock()
	doc := models.StructuredDocument{
		ID:         uuid.New().String(),
		Filename:   fh.Filename,
		UploadDate: f.timestamp(),
		RowCount:   rows,
	}
	f.docs = append(f.docs, doc)
	f.mu.Unlock()

	return c.JSON(http.StatusOK, models.UploadResult{StructuredDocument: doc, DataPreview: preview})
}

// readCSV counts data rows and returns the first few as header-keyed records.
func readCSV(data []byte) (int, []map[string]any, error) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return 0, nil, err
	}
	if len(records) == 0 {
		return 0, []map[string]any{}, nil
	}
	header, body := records[0], records[1:]
	preview := []map[string]any{}
	for i := 0; i < len(body) && i < previewRows; i++ {
		row := make(map[string]any, len(header))
		for j, col := range header {
			if j < len(body[i]) {
				row[col] = body[i][j]
			}
		}
		preview = append(preview, row)
	}
	return len(body), preview, nil
}

func (f *FakeAPI) handleListDocuments(c echo.Context) error {
	return c.JSON(http.StatusOK, f.Documents())
}

func (f *FakeAPI) handleChat(c echo.Context) error {
	var req models.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"detail": "invalid chat request"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, req)

	entry := models.HistoryEntry{
		Message:    req.Message,
		Timestamp:  f.timestamp(),
		Predefined: models.Flag(req.IsPredefined),
	}
	reply := models.ChatReply{NextAction: "continue_chat"}

	if req.StructuredDocumentID == "" {
		entry.Response = "General answer: " + req.Message
		reply.Response = entry.Response
		f.history = append([]models.HistoryEntry{entry}, f.history...)
		return c.JSON(http.StatusOK, reply)
	}

	doc, ok := models.FindDocument(f.docs, req.StructuredDocumentID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Structured data document not found."})
	}

	f.turns[doc.ID]++
	turn := f.turns[doc.ID]
	if turn == 1 {
		reply.NextAction = models.NextActionSearchInternet
	}
	if f.responder != nil {
		reply.Response = f.responder(req, doc, turn)
	} else {
		reply.Response = fmt.Sprintf("Answer %d about %s: %s", turn, doc.Filename, req.Message)
	}
	reply.SourceDocumentName = doc.Filename

	entry.Response = reply.Response
	entry.DocumentID = doc.ID
	entry.Turn = turn
	f.history = append([]models.HistoryEntry{entry}, f.history...)

	return c.JSON(http.StatusOK, reply)
}

func (f *FakeAPI) handleHistory(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.HistoryEntry, len(f.history))
	copy(out, f.history)
	return c.JSON(http.StatusOK, models.HistoryResponse{History: out})
}

func (f *FakeAPI) handleClearAll(c echo.Context) error {
	f.mu.Lock()
	f.docs = nil
	f.history = nil
	f.turns = make(map[string]int)
	f.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]string{"message": "All structured data documents and chat history were deleted."})
}
