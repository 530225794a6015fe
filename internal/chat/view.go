package chat

import (
	"github.com/datachat/console/internal/format"
	"github.com/datachat/console/internal/models"
)

// Text shown in the chat section.
var WelcomeLines = []string{
	"Select structured data on the side to start a conversation with the AI.",
	"You can ask about the data, or keep chatting to search the internet.",
}

const SidebarEmptyMessage = "No structured data documents to chat with yet."

// View is the chat section view model.
type View struct {
	Sidebar        []SidebarItem
	SidebarEmpty   string
	Welcome        []string
	Messages       []Bubble
	InputEnabled   bool
	Placeholder    string
	SendLabel      string
	Suggestions    []string
	ActiveFilename string
}

// SidebarItem is one selectable document.
type SidebarItem struct {
	ID       string
	Filename string
	Uploaded string
	Selected bool
}

// Bubble is one rendered message.
type Bubble struct {
	ID      string
	Sender  models.Sender
	Content string
	When    string
}

// BuildView derives the view model. sidebar is the last fetched catalog and
// sidebarEmpty the message to show when it is empty.
func BuildView(s State, sidebar []models.StructuredDocument, sidebarEmpty string, suggestions []string) View {
	v := View{
		InputEnabled:   s.InputEnabled(),
		Placeholder:    s.Placeholder,
		SendLabel:      "Send",
		ActiveFilename: s.ActiveFilename,
	}
	if v.Placeholder == "" {
		v.Placeholder = DefaultPlaceholder
	}
	if s.Status == AwaitingResponse {
		v.SendLabel = "Processing..."
	}
	if s.SuggestionsVisible {
		v.Suggestions = suggestions
	}

	if len(sidebar) == 0 {
		v.SidebarEmpty = sidebarEmpty
		if v.SidebarEmpty == "" {
			v.SidebarEmpty = SidebarEmptyMessage
		}
	}
	for _, doc := range sidebar {
		v.Sidebar = append(v.Sidebar, SidebarItem{
			ID:       doc.ID,
			Filename: doc.Filename,
			Uploaded: format.Date(doc.UploadDate),
			Selected: doc.ID == s.ActiveDocumentID,
		})
	}

	if len(s.Transcript) == 0 {
		v.Welcome = WelcomeLines
		return v
	}
	for _, m := range s.Transcript {
		v.Messages = append(v.Messages, Bubble{
			ID:      m.ID,
			Sender:  m.Sender,
			Content: m.Content,
			When:    format.Time(m.Timestamp),
		})
	}
	return v
}
