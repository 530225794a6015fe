package shell

import (
	"github.com/datachat/console/internal/catalog"
	"github.com/datachat/console/internal/chat"
	"github.com/datachat/console/internal/history"
	"github.com/datachat/console/internal/notify"
	"github.com/datachat/console/internal/upload"
)

// NavItem is one navigation link.
type NavItem struct {
	Section Section
	Title   string
	Active  bool
}

// FAQEntry is a static question and answer.
type FAQEntry struct {
	Question string
	Answer   string
}

// FAQ is the content of the FAQ section.
var FAQ = []FAQEntry{
	{
		Question: "Which files can I upload?",
		Answer:   "Spreadsheets and tables in XLSX, XLS or CSV format, up to 10MB each. One file is uploaded at a time.",
	},
	{
		Question: "How does the assistant answer my questions?",
		Answer:   "The first question about a document is answered from the uploaded data. Follow-up questions are answered with internet search.",
	},
	{
		Question: "Is my conversation kept?",
		Answer:   "Questions and answers are stored by the server and listed in the history section. The conversation on screen starts fresh whenever you pick a document.",
	},
	{
		Question: "How do I remove my data?",
		Answer:   "Use \"Clear all data\". It deletes every uploaded document and the whole chat history and cannot be undone.",
	},
}

// View is the composite view model of the whole front-end.
type View struct {
	Nav       []NavItem
	Section   Section
	Loading   bool
	Notices   []notify.Notice
	Modal     notify.Modal
	Upload    upload.View
	Documents catalog.View
	Chat      chat.View
	History   history.View
	FAQ       []FAQEntry
}

// View derives the view model. Expired notices are pruned on the way.
func (a *App) View() View {
	v := View{
		Section:   a.section,
		Loading:   a.Loading(),
		Notices:   a.notices.Active(),
		Modal:     a.notices.Modal(),
		Upload:    upload.BuildView(a.upload),
		Documents: catalog.BuildView(a.catalog, a.chat.ActiveDocumentID),
		History:   history.BuildView(a.history),
		FAQ:       FAQ,
	}
	for _, s := range Sections {
		v.Nav = append(v.Nav, NavItem{Section: s, Title: s.Title(), Active: s == a.section})
	}

	var sidebarEmpty string
	if a.sidebar.Failed {
		sidebarEmpty = catalog.FailedMessage
	}
	v.Chat = chat.BuildView(a.chat, a.sidebar.Documents, sidebarEmpty, a.suggestions)
	return v
}
