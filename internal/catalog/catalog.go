// Package catalog holds the list of structured documents known to the API and
// derives the document cards shown in the documents section.
package catalog

import (
	"github.com/datachat/console/internal/format"
	"github.com/datachat/console/internal/models"
)

// Empty-state messages.
const (
	EmptyMessage  = "No structured data documents in the system."
	FailedMessage = "Failed to load structured data documents."
)

// State is the last fetched catalog.
type State struct {
	Documents []models.StructuredDocument
	Loaded    bool
	Failed    bool
}

// FromDocuments records a successful fetch.
func FromDocuments(docs []models.StructuredDocument) State {
	if docs == nil {
		docs = []models.StructuredDocument{}
	}
	return State{Documents: docs, Loaded: true}
}

// LoadFailed records a failed fetch. Previously listed documents are dropped.
func LoadFailed() State {
	return State{Loaded: true, Failed: true}
}

// EmptyText returns the empty-state message for s, or "" when documents exist.
func (s State) EmptyText() string {
	switch {
	case s.Failed:
		return FailedMessage
	case len(s.Documents) == 0:
		return EmptyMessage
	}
	return ""
}

// Card is one document in the documents section.
type Card struct {
	ID       string
	Filename string
	Uploaded string
	Rows     string
	// Active marks the document the chat session is on.
	Active bool
}

// View is the documents section view model.
type View struct {
	Cards []Card
	Empty string
}

// BuildView derives the document cards. activeID is the chat session's
// active document, "" when none.
func BuildView(s State, activeID string) View {
	v := View{Empty: s.EmptyText()}
	if !s.Loaded {
		v.Empty = ""
		return v
	}
	for _, doc := range s.Documents {
		v.Cards = append(v.Cards, Card{
			ID:       doc.ID,
			Filename: doc.Filename,
			Uploaded: format.Date(doc.UploadDate),
			Rows:     format.Rows(doc.RowCount),
			Active:   activeID != "" && doc.ID == activeID,
		})
	}
	return v
}
