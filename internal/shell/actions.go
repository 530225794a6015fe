package shell

import (
	"errors"
	"fmt"

	"github.com/datachat/console/internal/chat"
	"github.com/datachat/console/internal/models"
	"github.com/datachat/console/internal/notify"
	"github.com/datachat/console/internal/upload"
)

// Navigate activates a section and starts its load.
type Navigate struct {
	Section Section
}

func (n Navigate) dispatch(a *App) []Task {
	if _, ok := ParseSection(string(n.Section)); !ok {
		a.log.WithField("section", n.Section).Warn("navigation to unknown section ignored")
		return nil
	}
	return a.navigate(n.Section)
}

// SelectFiles stages the first of Files for upload.
type SelectFiles struct {
	Files []upload.File
}

func (s SelectFiles) dispatch(a *App) []Task {
	next, err := upload.Select(a.upload, s.Files)
	a.setUpload(next)

	for i, f := range s.Files {
		if i == 0 && err == nil {
			continue
		}
		if f.Release != nil {
			f.Release()
		}
	}

	var vErr *upload.ValidationError
	if errors.As(err, &vErr) {
		a.notices.Show(notify.KindError, vErr.Error(), notify.ValidationDuration)
	}
	return nil
}

// RemoveFile drops the staged file.
type RemoveFile struct{}

func (RemoveFile) dispatch(a *App) []Task {
	a.setUpload(upload.Remove(a.upload))
	return nil
}

// SubmitUpload sends the staged file.
type SubmitUpload struct{}

func (SubmitUpload) dispatch(a *App) []Task {
	next, p, err := upload.BeginSubmit(a.upload)
	if errors.Is(err, upload.ErrNothingStaged) {
		a.notices.Info("No structured data file selected for upload.")
		return nil
	}
	if err != nil {
		a.notices.Info(err.Error())
		return nil
	}
	a.upload = next
	a.sending = p
	return []Task{submitUpload(a.api, p)}
}

// ChatWithDocument starts a chat on a document from the documents section.
type ChatWithDocument struct {
	ID       string
	Filename string
}

func (c ChatWithDocument) dispatch(a *App) []Task {
	a.chat = chat.Activate(a.chat, c.ID, c.Filename)
	a.notices.Show(notify.KindInfo, fmt.Sprintf("Data %q selected. You can start chatting.", c.Filename), notify.ShortDuration)
	if a.section == SectionChat {
		return nil
	}
	return a.navigate(SectionChat)
}

// SelectSidebarDocument starts a chat on a document picked in the chat
// sidebar. An empty Filename is looked up in the sidebar.
type SelectSidebarDocument struct {
	ID       string
	Filename string
}

func (s SelectSidebarDocument) dispatch(a *App) []Task {
	name := s.Filename
	if name == "" {
		if doc, ok := models.FindDocument(a.sidebar.Documents, s.ID); ok {
			name = doc.Filename
		}
	}
	a.chat = chat.Activate(a.chat, s.ID, name)
	return nil
}

// SendMessage asks a typed question.
type SendMessage struct {
	Text string
}

func (m SendMessage) dispatch(a *App) []Task {
	return a.send(m.Text, false)
}

// AskSuggestion asks one of the predefined questions.
type AskSuggestion struct {
	Text string
}

func (m AskSuggestion) dispatch(a *App) []Task {
	return a.send(m.Text, true)
}

func (a *App) send(text string, predefined bool) []Task {
	next, ticket, err := chat.BeginSend(a.chat, text, predefined, a.now())
	if err != nil {
		a.notices.Info(err.Error())
		return nil
	}
	a.chat = next
	return []Task{sendChat(a.api, ticket)}
}

// ToggleSuggestions shows or hides the predefined questions.
type ToggleSuggestions struct{}

func (ToggleSuggestions) dispatch(a *App) []Task {
	a.chat = chat.ToggleSuggestions(a.chat)
	return nil
}

// ClearAllData asks for confirmation before deleting all server data.
type ClearAllData struct{}

func (ClearAllData) dispatch(a *App) []Task {
	a.ask("Clear all data",
		"Are you sure you want to delete ALL structured data and chat history? This cannot be undone.",
		confirmClearAll{})
	return nil
}

type confirmClearAll struct{}

func (confirmClearAll) dispatch(a *App) []Task {
	a.startLoad()
	return []Task{clearAllData(a.api)}
}

// startChat is offered after a successful upload.
type startChat struct {
	id       string
	filename string
}

func (s startChat) dispatch(a *App) []Task {
	a.chat = chat.Activate(a.chat, s.id, s.filename)
	return a.navigate(SectionChat)
}

// ConfirmModal accepts the open modal.
type ConfirmModal struct{}

func (ConfirmModal) dispatch(a *App) []Task {
	act := a.confirm
	a.confirm = nil
	a.notices.CloseModal()
	if act == nil {
		return nil
	}
	return act.dispatch(a)
}

// CancelModal dismisses the open modal.
type CancelModal struct{}

func (CancelModal) dispatch(a *App) []Task {
	a.confirm = nil
	a.notices.CloseModal()
	return nil
}

// DismissNotice removes a notice before it expires.
type DismissNotice struct {
	ID string
}

func (d DismissNotice) dispatch(a *App) []Task {
	a.notices.Dismiss(d.ID)
	return nil
}
