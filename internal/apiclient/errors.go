package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Messages shown when the server gives nothing better.
const (
	msgConnectFailed   = "Failed to connect to the server. Check your connection."
	msgInvalidResponse = "The server returned an invalid response."
)

// RequestError is the uniform failure of a remote call. Message is always
// suitable for showing to the user.
type RequestError struct {
	Status  int    // HTTP status, 0 when no response was received
	Message string
	Err     error // underlying transport or decode error, if any
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// errorBody is the structured error payload of the API.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// newStatusError builds the error for a non-2xx response.
func newStatusError(status int, body []byte) *RequestError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return &RequestError{
			Status:  status,
			Message: fmt.Sprintf("Server error: %d %s.", status, http.StatusText(status)),
		}
	}

	if msg := detailMessage(eb.Detail); msg != "" {
		return &RequestError{Status: status, Message: msg}
	}
	return &RequestError{Status: status, Message: fmt.Sprintf("HTTP error %d", status)}
}

// detailMessage returns the detail field as text. Non-string details (e.g. a
// list of validation errors) are returned as compact JSON.
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
