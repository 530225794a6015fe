// Package tui is the terminal front-end. It drives a shell.App from a
// bubbletea program: every shell task runs as a tea.Cmd and its result comes
// back through Update, so state only changes on the program's goroutine.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/datachat/console/internal/logger"
	"github.com/datachat/console/internal/shell"
	"github.com/datachat/console/internal/upload"
	"github.com/sirupsen/logrus"
)

const (
	headerHeight = 3
	footerHeight = 3
	inputHeight  = 2
	pruneEvery   = time.Second
)

type resultMsg struct{ result shell.Result }
type pruneMsg struct{}

// Model is the bubbletea model of the terminal front-end.
type Model struct {
	app *shell.App
	ctx context.Context

	input    textinput.Model
	spin     spinner.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer

	// cursor indexes the document cards or the chat sidebar.
	cursor int
	width  int
	height int
	ready  bool

	log *logrus.Entry
}

// New creates the model around app.
func New(ctx context.Context, app *shell.App) Model {
	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = 0
	in.Width = 60

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return Model{
		app:   app,
		ctx:   ctx,
		input: in,
		spin:  s,
		log:   logger.WithFields(logrus.Fields{"component": "tui"}),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, pruneCmd())
}

func pruneCmd() tea.Cmd {
	return tea.Tick(pruneEvery, func(time.Time) tea.Msg { return pruneMsg{} })
}

// run turns shell tasks into commands. They may complete in any order;
// the shell tolerates that.
func (m Model) run(tasks []shell.Task) tea.Cmd {
	if len(tasks) == 0 {
		return nil
	}
	ctx := m.ctx
	cmds := make([]tea.Cmd, 0, len(tasks))
	for _, task := range tasks {
		task := task
		cmds = append(cmds, func() tea.Msg {
			return resultMsg{result: task(ctx)}
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) dispatch(act shell.Action) (Model, tea.Cmd) {
	cmd := m.run(m.app.Dispatch(act))
	m.clampCursor()
	m.refresh()
	return m, cmd
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case resultMsg:
		cmd := m.run(m.app.Apply(msg.result))
		m.clampCursor()
		m.refresh()
		return m, cmd

	case pruneMsg:
		m.app.Notices().Prune()
		return m, pruneCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.app.Close()
		return m, tea.Quit
	}

	if m.app.Notices().Modal().Open {
		switch key {
		case "y", "Y", "enter":
			return m.dispatch(shell.ConfirmModal{})
		case "n", "N", "esc":
			return m.dispatch(shell.CancelModal{})
		}
		return m, nil
	}

	switch key {
	case "tab":
		return m.dispatch(shell.Navigate{Section: m.offsetSection(1)})
	case "shift+tab":
		return m.dispatch(shell.Navigate{Section: m.offsetSection(-1)})
	case "ctrl+x":
		return m.dispatch(shell.ClearAllData{})
	case "ctrl+d":
		if notices := m.app.Notices().Active(); len(notices) > 0 {
			return m.dispatch(shell.DismissNotice{ID: notices[len(notices)-1].ID})
		}
		return m, nil
	case "ctrl+s":
		return m.dispatch(shell.ToggleSuggestions{})
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.input.Focused() {
		return m.handleInputKey(msg)
	}

	switch key {
	case "1", "2", "3", "4", "5":
		n, _ := strconv.Atoi(key)
		return m.dispatch(shell.Navigate{Section: shell.Sections[n-1]})
	case "up", "k":
		m.cursor--
		m.clampCursor()
		return m, nil
	case "down", "j":
		m.cursor++
		m.clampCursor()
		return m, nil
	case "enter":
		return m.selectUnderCursor()
	case ":":
		m.input.SetValue(":")
		m.input.CursorEnd()
		return m, m.input.Focus()
	case "q":
		m.app.Close()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.SetValue("")
		if m.app.Section() != shell.SectionChat {
			m.input.Blur()
		}
		return m, nil
	case "up":
		m.cursor--
		m.clampCursor()
		return m, nil
	case "down":
		m.cursor++
		m.clampCursor()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if m.app.Section() != shell.SectionChat {
			m.input.Blur()
		}
		switch {
		case strings.HasPrefix(text, ":"):
			return m.command(strings.TrimPrefix(text, ":"))
		case text == "" && m.app.Section() == shell.SectionChat:
			return m.selectUnderCursor()
		}
		return m.dispatch(shell.SendMessage{Text: text})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// command runs a ":" command line.
func (m Model) command(line string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "upload", "u":
		if arg == "" {
			return m.dispatch(shell.SelectFiles{})
		}
		f, err := OpenLocalFile(arg)
		if err != nil {
			m.app.Notices().Error(err.Error())
			return m, nil
		}
		return m.dispatch(shell.SelectFiles{Files: []upload.File{f}})
	case "remove":
		return m.dispatch(shell.RemoveFile{})
	case "submit":
		return m.dispatch(shell.SubmitUpload{})
	case "go":
		section, ok := shell.ParseSection(arg)
		if !ok {
			m.app.Notices().Error(fmt.Sprintf("Unknown section %q.", arg))
			return m, nil
		}
		return m.dispatch(shell.Navigate{Section: section})
	case "ask":
		suggestions := m.app.View().Chat.Suggestions
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(suggestions) {
			m.app.Notices().Error("Pick a suggestion by its number. Toggle them with ctrl+s.")
			return m, nil
		}
		return m.dispatch(shell.AskSuggestion{Text: suggestions[n-1]})
	case "clear":
		return m.dispatch(shell.ClearAllData{})
	case "quit", "q":
		m.app.Close()
		return m, tea.Quit
	}
	m.app.Notices().Error(fmt.Sprintf("Unknown command %q.", name))
	return m, nil
}

func (m Model) selectUnderCursor() (tea.Model, tea.Cmd) {
	v := m.app.View()
	switch m.app.Section() {
	case shell.SectionDocuments:
		if m.cursor < len(v.Documents.Cards) {
			card := v.Documents.Cards[m.cursor]
			return m.dispatch(shell.ChatWithDocument{ID: card.ID, Filename: card.Filename})
		}
	case shell.SectionChat:
		if m.cursor < len(v.Chat.Sidebar) {
			item := v.Chat.Sidebar[m.cursor]
			return m.dispatch(shell.SelectSidebarDocument{ID: item.ID, Filename: item.Filename})
		}
	case shell.SectionUpload:
		return m.dispatch(shell.SubmitUpload{})
	}
	return m, nil
}

func (m Model) offsetSection(delta int) shell.Section {
	n := len(shell.Sections)
	for i, s := range shell.Sections {
		if s == m.app.Section() {
			return shell.Sections[((i+delta)%n+n)%n]
		}
	}
	return shell.SectionUpload
}

func (m *Model) clampCursor() {
	var n int
	v := m.app.View()
	switch m.app.Section() {
	case shell.SectionDocuments:
		n = len(v.Documents.Cards)
	case shell.SectionChat:
		n = len(v.Chat.Sidebar)
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width-4, 10)

	h := max(height-headerHeight-footerHeight-inputHeight, 1)
	if !m.ready {
		m.viewport = viewport.New(width, h)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = h
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-8, 20)),
	)
	if err != nil {
		m.log.WithError(err).Warn("markdown renderer unavailable, using plain text")
		r = nil
	}
	m.renderer = r
	m.refresh()
}

// refresh keeps the input focus in step with the section and re-renders the body.
func (m *Model) refresh() {
	if m.app.Section() == shell.SectionChat && !m.input.Focused() {
		m.input.Focus()
	}
	if m.ready {
		m.viewport.SetContent(m.renderBody(m.app.View()))
		if m.app.Section() == shell.SectionChat {
			m.viewport.GotoBottom()
		}
	}
}

// OpenLocalFile describes a file on disk for the upload controller.
func OpenLocalFile(path string) (upload.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return upload.File{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.IsDir() {
		return upload.File{}, fmt.Errorf("%s is a directory", path)
	}
	return upload.File{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
