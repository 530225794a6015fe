// Package chat is the chat session state machine. All transitions are pure:
// they take a State and return the next one, leaving network calls to the caller.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/datachat/console/internal/models"
	"github.com/google/uuid"
)

// Status is the state machine position.
type Status int

const (
	// Unselected: no active document, input disabled.
	Unselected Status = iota
	// Selected: active document set, input enabled.
	Selected
	// AwaitingResponse: a message was sent, input disabled until it settles.
	AwaitingResponse
)

func (s Status) String() string {
	switch s {
	case Selected:
		return "selected"
	case AwaitingResponse:
		return "awaiting_response"
	default:
		return "unselected"
	}
}

const (
	DefaultPlaceholder = "Select data to start chatting..."
	ApologyMessage     = "Sorry, an internal error occurred while processing your question."
)

// State is the chat session. The zero value is Unselected.
type State struct {
	ActiveDocumentID   string
	ActiveFilename     string
	Transcript         []models.ChatMessage
	Status             Status
	Placeholder        string
	SuggestionsVisible bool
	// Epoch changes on every Activate and Reset so late replies can be told apart.
	Epoch int
}

// InputEnabled reports whether the message input accepts text.
func (s State) InputEnabled() bool {
	return s.Status == Selected
}

// Ticket identifies an in-flight exchange.
type Ticket struct {
	Epoch   int
	Request models.ChatRequest
}

// Outcome summarises a completed exchange.
type Outcome struct {
	// Stale is set when the session changed while the reply was pending.
	Stale bool
	// StrategyChanged is set when later turns will use internet search.
	StrategyChanged bool
}

// ValidationError rejects a message before it is sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	errNoDocument   = &ValidationError{Message: "Select structured data first to start chatting."}
	errEmptyMessage = &ValidationError{Message: "Type your question in the input field."}
	errBusy         = &ValidationError{Message: "Wait for the current answer before asking again."}
)

// Placeholder returns the input placeholder for an active document.
func Placeholder(filename string) string {
	if filename == "" {
		filename = "the selected data"
	}
	return fmt.Sprintf("Ask about %s...", filename)
}

// Activate starts a fresh session on a document.
func Activate(s State, documentID, filename string) State {
	return State{
		ActiveDocumentID: documentID,
		ActiveFilename:   filename,
		Transcript:       nil,
		Status:           Selected,
		Placeholder:      Placeholder(filename),
		Epoch:            s.Epoch + 1,
	}
}

// Reset returns to Unselected.
func Reset(s State) State {
	return State{
		Status:      Unselected,
		Placeholder: DefaultPlaceholder,
		Epoch:       s.Epoch + 1,
	}
}

// Reconcile re-validates the active document against a freshly fetched
// catalog. It never fetches anything itself.
func Reconcile(s State, catalog []models.StructuredDocument) State {
	if s.ActiveDocumentID == "" {
		return Reset(s)
	}
	doc, ok := models.FindDocument(catalog, s.ActiveDocumentID)
	if !ok {
		return Reset(s)
	}
	return Activate(s, doc.ID, doc.Filename)
}

// BeginSend appends the user's message and moves to AwaitingResponse. On a
// *ValidationError the state is returned unchanged.
func BeginSend(s State, text string, predefined bool, now time.Time) (State, Ticket, error) {
	if s.ActiveDocumentID == "" {
		return s, Ticket{}, errNoDocument
	}
	if strings.TrimSpace(text) == "" {
		return s, Ticket{}, errEmptyMessage
	}
	if s.Status == AwaitingResponse {
		return s, Ticket{}, errBusy
	}

	s.Transcript = appendMessage(s.Transcript, text, models.SenderUser, now)
	s.Status = AwaitingResponse
	s.SuggestionsVisible = false

	return s, Ticket{
		Epoch: s.Epoch,
		Request: models.ChatRequest{
			Message:              text,
			StructuredDocumentID: s.ActiveDocumentID,
			IsPredefined:         predefined,
		},
	}, nil
}

// CompleteSend records the assistant's reply.
func CompleteSend(s State, t Ticket, reply *models.ChatReply, now time.Time) (State, Outcome) {
	out := Outcome{StrategyChanged: reply != nil && reply.NextAction == models.NextActionSearchInternet}
	if t.Epoch != s.Epoch {
		out.Stale = true
		return s, out
	}

	var text string
	if reply != nil {
		text = reply.Response
	}
	s.Transcript = appendMessage(s.Transcript, text, models.SenderAssistant, now)
	s.Status = Selected
	return s, out
}

// FailSend records an apology in place of the reply.
func FailSend(s State, t Ticket, now time.Time) (State, Outcome) {
	if t.Epoch != s.Epoch {
		return s, Outcome{Stale: true}
	}
	s.Transcript = appendMessage(s.Transcript, ApologyMessage, models.SenderAssistant, now)
	s.Status = Selected
	return s, Outcome{}
}

// ToggleSuggestions shows or hides the suggested questions.
func ToggleSuggestions(s State) State {
	if s.Status != Selected {
		s.SuggestionsVisible = false
		return s
	}
	s.SuggestionsVisible = !s.SuggestionsVisible
	return s
}

func appendMessage(transcript []models.ChatMessage, content string, sender models.Sender, now time.Time) []models.ChatMessage {
	// copy so states handed out earlier keep their own transcript
	next := make([]models.ChatMessage, len(transcript), len(transcript)+1)
	copy(next, transcript)
	return append(next, models.ChatMessage{
		ID:        uuid.New().String(),
		Content:   content,
		Sender:    sender,
		Timestamp: now,
	})
}
