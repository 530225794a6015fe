package models

import "time"

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// NextActionSearchInternet signals that later turns are answered from internet search.
const NextActionSearchInternet = "search_internet"

// ChatMessage is one entry of the in-memory transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message              string `json:"message"`
	StructuredDocumentID string `json:"structured_document_id"`
	IsPredefined         bool   `json:"is_predefined,omitempty"`
}

// ChatReply is the response of POST /chat.
type ChatReply struct {
	Response           string `json:"response"`
	SourceDocumentName string `json:"source_document_name,omitempty"`
	NextAction         string `json:"next_action,omitempty"`
}
