package shell

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/datachat/console/internal/apiclient"
	"github.com/datachat/console/internal/catalog"
	"github.com/datachat/console/internal/chat"
	"github.com/datachat/console/internal/models"
	"github.com/datachat/console/internal/notify"
	"github.com/datachat/console/internal/testutil"
	"github.com/datachat/console/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T) (*App, *testutil.FakeAPI) {
	t.Helper()
	fake := testutil.NewFakeAPI()
	url := fake.Start(t)
	app := New(apiclient.New(apiclient.Config{BaseURL: url}), Options{
		Suggestions: []string{"How many rows are there?"},
		Now:         func() time.Time { return epoch },
	})
	return app, fake
}

// csvFile returns an in-memory file that reports size bytes and counts releases.
func csvFile(name string, size int64, released *int) upload.File {
	return upload.File{
		Name: name,
		Size: size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("region,total\nnorth,40\nsouth,2\n")), nil
		},
		Release: func() { *released++ },
	}
}

func lastNotice(t *testing.T, app *App) notify.Notice {
	t.Helper()
	notices := app.Notices().Active()
	require.NotEmpty(t, notices)
	return notices[len(notices)-1]
}

func TestNavigate_LoadsSection(t *testing.T) {
	tests := []struct {
		section  Section
		wantDocs int
		wantHist int
	}{
		{section: SectionUpload},
		{section: SectionDocuments, wantDocs: 1},
		{section: SectionChat, wantDocs: 1},
		{section: SectionHistory, wantHist: 1},
		{section: SectionFAQ},
	}

	for _, tt := range tests {
		t.Run(string(tt.section), func(t *testing.T) {
			app, fake := newTestApp(t)

			tasks := app.Dispatch(Navigate{Section: tt.section})
			assert.Equal(t, tt.section, app.Section())
			assert.Equal(t, len(tasks) > 0, app.Loading())

			app.Run(context.Background(), tasks)
			assert.False(t, app.Loading())
			assert.Equal(t, tt.wantDocs, fake.Calls(http.MethodGet, "/structured-documents"))
			assert.Equal(t, tt.wantHist, fake.Calls(http.MethodGet, "/history"))

			v := app.View()
			for _, item := range v.Nav {
				assert.Equal(t, item.Section == tt.section, item.Active)
			}
		})
	}
}

func TestNavigate_UnknownSectionIgnored(t *testing.T) {
	app, _ := newTestApp(t)
	assert.Nil(t, app.Dispatch(Navigate{Section: "settings"}))
	assert.Equal(t, SectionUpload, app.Section())
}

func TestNavigate_LoadFailureClearsLoading(t *testing.T) {
	app, fake := newTestApp(t)
	fake.Fail(http.MethodGet, "/structured-documents", testutil.Failure{Status: http.StatusInternalServerError, Detail: "database locked"})

	app.Do(context.Background(), Navigate{Section: SectionDocuments})

	assert.False(t, app.Loading())
	n := lastNotice(t, app)
	assert.Equal(t, notify.KindError, n.Kind)
	assert.Contains(t, n.Message, "database locked")
	assert.Equal(t, catalog.FailedMessage, app.View().Documents.Empty)
}

func TestDocuments_EmptyAndListed(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()

	app.Do(ctx, Navigate{Section: SectionDocuments})
	assert.Equal(t, catalog.EmptyMessage, app.View().Documents.Empty)

	fake.AddDocument("sales.csv", 120)
	app.Do(ctx, Navigate{Section: SectionDocuments})
	v := app.View().Documents
	assert.Empty(t, v.Empty)
	require.Len(t, v.Cards, 1)
	assert.Equal(t, "sales.csv", v.Cards[0].Filename)
	assert.Equal(t, "120", v.Cards[0].Rows)
}

func TestUploadThenStartChat(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	released := 0

	app.Do(ctx, SelectFiles{Files: []upload.File{csvFile("report.csv", 2<<20, &released)}})
	require.NotNil(t, app.Upload().Pending)
	assert.True(t, app.Upload().SubmitEnabled())

	tasks := app.Dispatch(SubmitUpload{})
	require.Len(t, tasks, 1)
	assert.False(t, app.Upload().SubmitEnabled(), "submit disabled while in flight")
	assert.Equal(t, "Processing...", app.View().Upload.SubmitLabel)
	app.Run(ctx, tasks)

	assert.Nil(t, app.Upload().Pending)
	assert.False(t, app.Upload().InFlight)
	assert.Equal(t, 1, released)
	assert.Equal(t, 1, fake.Calls(http.MethodPost, "/upload-structured-data"))

	n := lastNotice(t, app)
	assert.Equal(t, notify.KindSuccess, n.Kind)
	assert.Contains(t, n.Message, "report.csv")

	modal := app.View().Modal
	require.True(t, modal.Open)
	assert.Contains(t, modal.Message, "(2 rows)")

	preview := app.View().Upload.Preview
	require.NotNil(t, preview)
	assert.Equal(t, []string{"region", "total"}, preview.Columns)

	docs := fake.Documents()
	require.Len(t, docs, 1)

	app.Do(ctx, ConfirmModal{})
	assert.False(t, app.View().Modal.Open)
	assert.Equal(t, SectionChat, app.Section())
	assert.Equal(t, docs[0].ID, app.Chat().ActiveDocumentID)
	assert.Empty(t, app.Chat().Transcript)
	assert.True(t, app.Chat().InputEnabled())
	assert.Equal(t, 1, fake.Calls(http.MethodGet, "/structured-documents"))
}

func TestUploadThenDeclineKeepsSession(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	doc := fake.AddDocument("old.csv", 3)
	released := 0

	app.Do(ctx, ChatWithDocument{ID: doc.ID, Filename: doc.Filename})
	app.Do(ctx, Navigate{Section: SectionUpload})
	app.Do(ctx, SelectFiles{Files: []upload.File{csvFile("new.csv", 100, &released)}})
	app.Do(ctx, SubmitUpload{})
	app.Do(ctx, CancelModal{})

	assert.Equal(t, doc.ID, app.Chat().ActiveDocumentID)
	assert.Equal(t, SectionUpload, app.Section())
}

func TestUploadFailureKeepsFile(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	fake.Fail(http.MethodPost, "/upload-structured-data", testutil.Failure{Status: http.StatusBadRequest, Detail: "Only .xlsx, .xls or .csv files are allowed."})
	released := 0

	app.Do(ctx, SelectFiles{Files: []upload.File{csvFile("report.csv", 100, &released)}})
	app.Do(ctx, SubmitUpload{})

	require.NotNil(t, app.Upload().Pending)
	assert.True(t, app.Upload().SubmitEnabled())
	assert.Zero(t, released)
	assert.False(t, app.View().Modal.Open)

	n := lastNotice(t, app)
	assert.Equal(t, notify.KindError, n.Kind)
	assert.Contains(t, n.Message, "Only .xlsx")
}

func TestSelectFiles_Validation(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()
	released := 0

	app.Do(ctx, SelectFiles{Files: []upload.File{csvFile("ok.csv", 100, &released)}})
	require.NotNil(t, app.Upload().Pending)

	app.Do(ctx, SelectFiles{Files: []upload.File{csvFile("huge.csv", models.MaxUploadBytes+1, &released)}})
	assert.Nil(t, app.Upload().Pending)
	assert.Equal(t, 2, released, "both the replaced and the rejected file are released")

	n := lastNotice(t, app)
	assert.Equal(t, notify.KindError, n.Kind)
	assert.Equal(t, epoch.Add(notify.ValidationDuration), n.Expires)
	assert.Equal(t, upload.EmptyMessage, app.View().Upload.Empty)
}

func TestSubmitUpload_NothingStaged(t *testing.T) {
	app, fake := newTestApp(t)

	assert.Nil(t, app.Dispatch(SubmitUpload{}))
	assert.Equal(t, notify.KindInfo, lastNotice(t, app).Kind)
	assert.Zero(t, fake.Calls(http.MethodPost, "/upload-structured-data"))
}

func TestRemoveFile(t *testing.T) {
	app, _ := newTestApp(t)
	released := 0

	app.Do(context.Background(), SelectFiles{Files: []upload.File{csvFile("a.csv", 1, &released)}})
	app.Do(context.Background(), RemoveFile{})

	assert.Nil(t, app.Upload().Pending)
	assert.Equal(t, 1, released)
}

func TestSendMessage_StrategyNotice(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	doc := fake.AddDocument("report.csv", 120)
	fake.SetResponder(func(req models.ChatRequest, d models.StructuredDocument, turn int) string {
		return "The total is 42."
	})

	app.Do(ctx, ChatWithDocument{ID: doc.ID, Filename: doc.Filename})

	tasks := app.Dispatch(SendMessage{Text: "What is the total?"})
	require.Len(t, tasks, 1)
	assert.Equal(t, chat.AwaitingResponse, app.Chat().Status)
	assert.False(t, app.View().Chat.InputEnabled)
	app.Run(ctx, tasks)

	s := app.Chat()
	require.Len(t, s.Transcript, 2)
	assert.Equal(t, "What is the total?", s.Transcript[0].Content)
	assert.Equal(t, "The total is 42.", s.Transcript[1].Content)
	assert.True(t, s.InputEnabled())

	n := lastNotice(t, app)
	assert.Equal(t, notify.KindInfo, n.Kind)
	assert.Contains(t, n.Message, "internet search")

	reqs := fake.ChatRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, models.ChatRequest{Message: "What is the total?", StructuredDocumentID: doc.ID}, reqs[0])
}

func TestSendMessage_Rejected(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()

	assert.Nil(t, app.Dispatch(SendMessage{Text: "hello"}), "no document selected")
	assert.Equal(t, notify.KindInfo, lastNotice(t, app).Kind)

	doc := fake.AddDocument("a.csv", 1)
	app.Do(ctx, ChatWithDocument{ID: doc.ID, Filename: doc.Filename})
	before := app.Chat()

	assert.Nil(t, app.Dispatch(SendMessage{Text: "   "}))
	assert.Equal(t, before, app.Chat())
	assert.Empty(t, fake.ChatRequests())
}

func TestSendMessage_FailureAppendsApology(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	doc := fake.AddDocument("a.csv", 1)
	fake.Fail(http.MethodPost, "/chat", testutil.Failure{Status: http.StatusBadGateway})

	app.Do(ctx, ChatWithDocument{ID: doc.ID, Filename: doc.Filename})
	app.Do(ctx, SendMessage{Text: "q"})

	s := app.Chat()
	require.Len(t, s.Transcript, 2)
	assert.Equal(t, chat.ApologyMessage, s.Transcript[1].Content)
	assert.True(t, s.InputEnabled())
	assert.Equal(t, notify.KindError, lastNotice(t, app).Kind)
}

func TestSendMessage_TranscriptGrowsByTwo(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	doc := fake.AddDocument("a.csv", 1)
	app.Do(ctx, ChatWithDocument{ID: doc.ID, Filename: doc.Filename})

	for n := 1; n <= 4; n++ {
		app.Do(ctx, SendMessage{Text: "question"})
		assert.Len(t, app.Chat().Transcript, 2*n)
	}
}

func TestAskSuggestion_MarksPredefined(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	doc := fake.AddDocument("a.csv", 1)
	app.Do(ctx, ChatWithDocument{ID: doc.ID, Filename: doc.Filename})

	app.Do(ctx, ToggleSuggestions{})
	assert.Equal(t, []string{"How many rows are there?"}, app.View().Chat.Suggestions)

	app.Do(ctx, AskSuggestion{Text: "How many rows are there?"})
	reqs := fake.ChatRequests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].IsPredefined)
	assert.Nil(t, app.View().Chat.Suggestions)
}

func TestLateReplyAfterSwitchingDocument(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	first := fake.AddDocument("a.csv", 1)
	second := fake.AddDocument("b.csv", 1)

	app.Do(ctx, ChatWithDocument{ID: first.ID, Filename: first.Filename})
	pending := app.Dispatch(SendMessage{Text: "q"})
	app.Do(ctx, SelectSidebarDocument{ID: second.ID})

	app.Run(ctx, pending)

	s := app.Chat()
	assert.Equal(t, second.ID, s.ActiveDocumentID)
	assert.Equal(t, "b.csv", s.ActiveFilename)
	assert.Empty(t, s.Transcript)
	assert.True(t, s.InputEnabled())
}

func TestChatSidebar_ReconcileFetchesOnce(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	doc := fake.AddDocument("a.csv", 1)

	app.Do(ctx, ChatWithDocument{ID: doc.ID, Filename: doc.Filename})
	assert.Equal(t, SectionChat, app.Section())
	assert.Equal(t, 1, fake.Calls(http.MethodGet, "/structured-documents"))
	assert.Equal(t, doc.ID, app.Chat().ActiveDocumentID)

	// already in chat: no second navigation
	app.Do(ctx, ChatWithDocument{ID: doc.ID, Filename: doc.Filename})
	assert.Equal(t, 1, fake.Calls(http.MethodGet, "/structured-documents"))

	fake.RemoveDocument(doc.ID)
	app.Do(ctx, Navigate{Section: SectionChat})

	assert.Equal(t, 2, fake.Calls(http.MethodGet, "/structured-documents"))
	assert.Equal(t, chat.Unselected, app.Chat().Status)
	assert.Empty(t, app.Chat().ActiveDocumentID)
	assert.Equal(t, chat.SidebarEmptyMessage, app.View().Chat.SidebarEmpty)
}

func TestChatSidebar_LoadFailureResets(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	doc := fake.AddDocument("a.csv", 1)
	app.Do(ctx, ChatWithDocument{ID: doc.ID, Filename: doc.Filename})

	fake.Fail(http.MethodGet, "/structured-documents", testutil.Failure{Status: http.StatusServiceUnavailable})
	app.Do(ctx, Navigate{Section: SectionChat})

	assert.False(t, app.Loading())
	assert.Equal(t, chat.Unselected, app.Chat().Status)
	assert.Equal(t, catalog.FailedMessage, app.View().Chat.SidebarEmpty)
}

func TestHistorySection(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	doc := fake.AddDocument("a.csv", 1)

	app.Do(ctx, Navigate{Section: SectionHistory})
	assert.Equal(t, "No chat history saved yet.", app.View().History.Empty)

	app.Do(ctx, ChatWithDocument{ID: doc.ID, Filename: doc.Filename})
	app.Do(ctx, SendMessage{Text: "first"})
	app.Do(ctx, AskSuggestion{Text: "second"})
	app.Do(ctx, Navigate{Section: SectionHistory})

	items := app.View().History.Items
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Question)
	assert.True(t, items[0].Predefined)
	assert.False(t, items[1].Predefined)
	assert.Contains(t, items[0].Context, "(Internet search)")
	assert.Contains(t, items[1].Context, "(Data search)")
}

func TestClearAllData(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	doc := fake.AddDocument("a.csv", 1)
	released := 0

	app.Do(ctx, ChatWithDocument{ID: doc.ID, Filename: doc.Filename})
	app.Do(ctx, SendMessage{Text: "q"})
	app.Do(ctx, SelectFiles{Files: []upload.File{csvFile("next.csv", 1, &released)}})

	app.Do(ctx, ClearAllData{})
	require.True(t, app.View().Modal.Open)
	assert.Zero(t, fake.Calls(http.MethodDelete, "/clear-all-data"), "nothing deleted before confirmation")

	app.Do(ctx, ConfirmModal{})

	assert.Equal(t, 1, fake.Calls(http.MethodDelete, "/clear-all-data"))
	assert.Equal(t, SectionUpload, app.Section())
	assert.False(t, app.Loading())
	assert.Empty(t, app.Chat().ActiveDocumentID)
	assert.Empty(t, app.Chat().Transcript)
	assert.False(t, app.Chat().InputEnabled())
	assert.Nil(t, app.Upload().Pending)
	assert.Equal(t, 1, released)
	assert.Empty(t, fake.Documents())
	assert.Equal(t, notify.KindSuccess, lastNotice(t, app).Kind)
}

func TestClearAllData_Cancelled(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()

	app.Do(ctx, ClearAllData{})
	app.Do(ctx, CancelModal{})
	app.Do(ctx, ConfirmModal{})

	assert.Zero(t, fake.Calls(http.MethodDelete, "/clear-all-data"))
	assert.False(t, app.View().Modal.Open)
}

func TestClearAllData_Failure(t *testing.T) {
	app, fake := newTestApp(t)
	ctx := context.Background()
	doc := fake.AddDocument("a.csv", 1)
	fake.Fail(http.MethodDelete, "/clear-all-data", testutil.Failure{Status: http.StatusInternalServerError, Detail: "disk full"})

	app.Do(ctx, ChatWithDocument{ID: doc.ID, Filename: doc.Filename})
	app.Do(ctx, ClearAllData{})
	app.Do(ctx, ConfirmModal{})

	assert.Equal(t, SectionChat, app.Section())
	assert.Equal(t, doc.ID, app.Chat().ActiveDocumentID)
	assert.Contains(t, lastNotice(t, app).Message, "disk full")
}

func TestDismissNotice(t *testing.T) {
	app, _ := newTestApp(t)
	app.Dispatch(SubmitUpload{})
	n := lastNotice(t, app)

	app.Dispatch(DismissNotice{ID: n.ID})
	assert.Empty(t, app.View().Notices)
}

func TestClose_ReleasesStagedFile(t *testing.T) {
	app, _ := newTestApp(t)
	released := 0
	app.Do(context.Background(), SelectFiles{Files: []upload.File{csvFile("a.csv", 1, &released)}})

	app.Close()
	assert.Equal(t, 1, released)
	assert.Nil(t, app.Upload().Pending)
}
