// Package history derives the view of past question/answer turns.
package history

import (
	"fmt"

	"github.com/datachat/console/internal/format"
	"github.com/datachat/console/internal/models"
)

const (
	EmptyMessage  = "No chat history saved yet."
	FailedMessage = "Failed to load chat history."

	GeneralContext = "General context"
)

// State is the last fetched history.
type State struct {
	Entries []models.HistoryEntry
	Loaded  bool
	Failed  bool
}

// Item is one rendered history entry.
type Item struct {
	Question   string
	Answer     string
	Context    string
	When       string
	Predefined bool
}

// View is the history section view model.
type View struct {
	Items []Item
	Empty string
}

// ContextLabel describes where an answer came from. Turn 1 of a document
// session is answered from the data, later turns from internet search.
func ContextLabel(e models.HistoryEntry) string {
	if e.DocumentID == "" {
		return GeneralContext
	}
	label := fmt.Sprintf("Data doc ID: %s", e.DocumentID)
	switch {
	case e.Turn == 1:
		label += " (Data search)"
	case e.Turn > 1:
		label += " (Internet search)"
	}
	return label
}

// BuildView derives the view model.
func BuildView(s State) View {
	if !s.Loaded {
		return View{}
	}
	if s.Failed {
		return View{Empty: FailedMessage}
	}
	if len(s.Entries) == 0 {
		return View{Empty: EmptyMessage}
	}

	v := View{Items: make([]Item, 0, len(s.Entries))}
	for _, e := range s.Entries {
		v.Items = append(v.Items, Item{
			Question:   e.Message,
			Answer:     e.Response,
			Context:    ContextLabel(e),
			When:       format.Date(e.Timestamp),
			Predefined: bool(e.Predefined),
		})
	}
	return v
}
