package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// HistoryEntry is a persisted question/answer turn. Read-only on the client.
type HistoryEntry struct {
	Message    string `json:"message"`
	Response   string `json:"response"`
	Timestamp  string `json:"timestamp"`
	DocumentID string `json:"excel_document_id,omitempty"`
	Turn       int    `json:"chat_turn,omitempty"`
	Predefined Flag   `json:"is_predefined"`
}

// HistoryResponse wraps the GET /history payload.
type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
}

// Flag is a boolean stored by the server as an integer column. It decodes
// from a JSON bool, a number (non-zero is true) or null, and encodes as 0 or 1.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", "false":
		*f = false
		return nil
	case "true":
		*f = true
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flag: unexpected value %s", data)
	}
	v, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return fmt.Errorf("flag: %w", err)
	}
	*f = v != 0
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}
