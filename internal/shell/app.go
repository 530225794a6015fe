// Package shell is the navigation shell. It owns all client state, turns user
// actions into network tasks and folds the task results back into state.
//
// State is only touched from Dispatch and Apply, which callers must invoke
// from a single control flow. Tasks perform one API call each and never touch
// state, so a front-end is free to run them wherever it likes.
package shell

import (
	"context"
	"io"
	"time"

	"github.com/datachat/console/internal/catalog"
	"github.com/datachat/console/internal/chat"
	"github.com/datachat/console/internal/history"
	"github.com/datachat/console/internal/logger"
	"github.com/datachat/console/internal/models"
	"github.com/datachat/console/internal/notify"
	"github.com/datachat/console/internal/upload"
	"github.com/sirupsen/logrus"
)

// Section is a top level area of the front-end.
type Section string

const (
	SectionUpload    Section = "upload"
	SectionDocuments Section = "documents"
	SectionChat      Section = "chat"
	SectionHistory   Section = "history"
	SectionFAQ       Section = "faq"
)

// Sections lists every section in navigation order.
var Sections = []Section{SectionUpload, SectionDocuments, SectionChat, SectionHistory, SectionFAQ}

// Title is the navigation label.
func (s Section) Title() string {
	switch s {
	case SectionUpload:
		return "Upload data"
	case SectionDocuments:
		return "Documents"
	case SectionChat:
		return "Chat"
	case SectionHistory:
		return "History"
	case SectionFAQ:
		return "FAQ"
	}
	return string(s)
}

// ParseSection resolves a section name.
func ParseSection(name string) (Section, bool) {
	for _, s := range Sections {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// API is the part of the remote API the shell needs.
type API interface {
	UploadStructuredData(ctx context.Context, name string, r io.Reader) (*models.UploadResult, error)
	ListStructuredDocuments(ctx context.Context) ([]models.StructuredDocument, error)
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatReply, error)
	History(ctx context.Context) ([]models.HistoryEntry, error)
	ClearAllData(ctx context.Context) error
}

// Task performs one network call and reports its Result.
type Task func(ctx context.Context) Result

// Result is the outcome of a Task, applied with App.Apply.
type Result interface {
	apply(a *App) []Task
}

// Action is a user event, applied with App.Dispatch.
type Action interface {
	dispatch(a *App) []Task
}

// Options tune a new App.
type Options struct {
	// Suggestions are the predefined questions offered in the chat section.
	Suggestions []string
	// Now defaults to time.Now.
	Now func() time.Time
}

// App is the whole client state of one front-end instance.
type App struct {
	api API
	now func() time.Time

	section Section
	loading int

	upload  upload.State
	sending *upload.PendingUpload
	catalog catalog.State
	sidebar catalog.State
	chat    chat.State
	history history.State

	notices *notify.Center
	// confirm runs when the open modal is accepted.
	confirm Action

	suggestions []string
	log         *logrus.Entry
}

// New creates an App showing the upload section.
func New(api API, opts Options) *App {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	notices := notify.NewCenter()
	notices.SetClock(now)

	return &App{
		api:         api,
		now:         now,
		section:     SectionUpload,
		chat:        chat.Reset(chat.State{}),
		notices:     notices,
		suggestions: opts.Suggestions,
		log:         logger.WithFields(logrus.Fields{"component": "shell"}),
	}
}

// Dispatch applies a user action and returns the network tasks it started.
func (a *App) Dispatch(act Action) []Task {
	return act.dispatch(a)
}

// Apply folds a task result into state and returns any follow-up tasks.
func (a *App) Apply(r Result) []Task {
	return r.apply(a)
}

// Run executes tasks one after another on the calling goroutine, applying
// each result before the next task starts.
func (a *App) Run(ctx context.Context, tasks []Task) {
	for len(tasks) > 0 {
		t := tasks[0]
		tasks = append(tasks[1:], a.Apply(t(ctx))...)
	}
}

// Do dispatches act and runs the resulting tasks to completion.
func (a *App) Do(ctx context.Context, act Action) {
	a.Run(ctx, a.Dispatch(act))
}

// Section returns the active section.
func (a *App) Section() Section {
	return a.section
}

// Loading reports whether a section load or clear-all is outstanding.
func (a *App) Loading() bool {
	return a.loading > 0
}

// Chat returns the chat session state.
func (a *App) Chat() chat.State {
	return a.chat
}

// Upload returns the upload controller state.
func (a *App) Upload() upload.State {
	return a.upload
}

// Notices exposes the notification center.
func (a *App) Notices() *notify.Center {
	return a.notices
}

// Close releases the staged file unless it is being sent.
func (a *App) Close() {
	a.setUpload(upload.Remove(a.upload))
}

func (a *App) startLoad() {
	a.loading++
}

func (a *App) finishLoad() {
	if a.loading > 0 {
		a.loading--
	}
}

// setUpload replaces the upload state and frees a staged file that is no
// longer referenced.
func (a *App) setUpload(next upload.State) {
	prev := a.upload.Pending
	a.upload = next
	a.releaseIfUnused(prev)
}

func (a *App) releaseIfUnused(p *upload.PendingUpload) {
	if p == nil || p == a.upload.Pending || p == a.sending {
		return
	}
	p.Release()
}

func (a *App) navigate(s Section) []Task {
	a.section = s
	a.log.WithField("section", s).Debug("navigate")

	switch s {
	case SectionDocuments:
		a.startLoad()
		return []Task{loadCatalog(a.api)}
	case SectionChat:
		a.startLoad()
		return []Task{loadSidebar(a.api)}
	case SectionHistory:
		a.startLoad()
		return []Task{loadHistory(a.api)}
	}
	return nil
}

// ask opens the confirmation modal; accepting it dispatches act.
func (a *App) ask(title, message string, act Action) {
	a.confirm = act
	a.notices.ShowModal(title, message)
}

// resetAll drops every piece of client-owned state.
func (a *App) resetAll() {
	a.chat = chat.Reset(a.chat)
	a.setUpload(upload.State{InFlight: a.upload.InFlight})
	a.catalog = catalog.State{}
	a.sidebar = catalog.State{}
	a.history = history.State{}
}
