// Package apiclient is the gateway to the remote structured data chat API.
// Every call returns either a parsed payload or a *RequestError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/datachat/console/internal/logger"
	"github.com/datachat/console/internal/models"
	"github.com/sirupsen/logrus"
)

// Endpoints of the remote API.
const (
	EndpointUpload        = "/upload-structured-data"
	EndpointDocuments     = "/structured-documents"
	EndpointChat          = "/chat"
	EndpointHistory       = "/history"
	EndpointClearAllData  = "/clear-all-data"
	EndpointHealth        = "/health"
	EndpointSystemStats   = "/system-stats"
	uploadFormField       = "file"
	defaultRequestMethod  = http.MethodGet
	maxLoggedErrorMessage = 200
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout of zero means no client-side timeout.
	Timeout time.Duration
}

// Client talks to the remote API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Options describe one request.
type Options struct {
	Method string
	Body   io.Reader
	// ContentType defaults to application/json when Body is set.
	ContentType string
	Headers     map[string]string
}

// New creates a client for the API at cfg.BaseURL.
func New(cfg Config) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Call performs a request and returns the raw JSON payload. A nil payload with
// a nil error means the server answered with no content.
func (c *Client) Call(ctx context.Context, endpoint string, opts Options) (json.RawMessage, error) {
	method := opts.Method
	if method == "" {
		method = defaultRequestMethod
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, opts.Body)
	if err != nil {
		return nil, &RequestError{Message: msgConnectFailed, Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	switch {
	case opts.ContentType != "":
		req.Header.Set("Content-Type", opts.ContentType)
	case opts.Body != nil:
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	fields := logrus.Fields{"endpoint": endpoint, "method": method}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		fields["duration"] = time.Since(start).String()
		logger.WithFields(fields).WithError(err).Warn("API call failed")
		return nil, &RequestError{Message: msgConnectFailed, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	fields["status"] = resp.StatusCode
	fields["duration"] = time.Since(start).String()
	if err != nil {
		logger.WithFields(fields).WithError(err).Warn("API response could not be read")
		return nil, &RequestError{Status: resp.StatusCode, Message: msgConnectFailed, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := newStatusError(resp.StatusCode, body)
		fields["error"] = truncate(reqErr.Message, maxLoggedErrorMessage)
		logger.WithFields(fields).Warn("API call rejected")
		return nil, reqErr
	}

	logger.WithFields(fields).Debug("API call done")

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, &RequestError{
			Status:  resp.StatusCode,
			Message: msgInvalidResponse,
			Err:     errors.New("response body is not valid JSON"),
		}
	}
	return json.RawMessage(body), nil
}

// UploadStructuredData sends one file as multipart form field "file".
func (c *Client) UploadStructuredData(ctx context.Context, name string, r io.Reader) (*models.UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(uploadFormField, name)
	if err != nil {
		return nil, &RequestError{Message: msgConnectFailed, Err: fmt.Errorf("building form: %w", err)}
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, &RequestError{Message: fmt.Sprintf("Could not read file %q.", name), Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &RequestError{Message: msgConnectFailed, Err: fmt.Errorf("closing form: %w", err)}
	}

	raw, err := c.Call(ctx, EndpointUpload, Options{
		Method:      http.MethodPost,
		Body:        &buf,
		ContentType: writer.FormDataContentType(),
	})
	if err != nil {
		return nil, err
	}

	var result models.UploadResult
	if err := decode(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListStructuredDocuments returns every uploaded document, newest first.
func (c *Client) ListStructuredDocuments(ctx context.Context) ([]models.StructuredDocument, error) {
	raw, err := c.Call(ctx, EndpointDocuments, Options{})
	if err != nil {
		return nil, err
	}

	docs := []models.StructuredDocument{}
	if err := decode(raw, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Chat asks a question about a document.
func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatReply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &RequestError{Message: msgConnectFailed, Err: fmt.Errorf("encoding chat request: %w", err)}
	}

	raw, err := c.Call(ctx, EndpointChat, Options{Method: http.MethodPost, Body: bytes.NewReader(body)})
	if err != nil {
		return nil, err
	}

	var reply models.ChatReply
	if err := decode(raw, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// History returns past question/answer turns.
func (c *Client) History(ctx context.Context) ([]models.HistoryEntry, error) {
	raw, err := c.Call(ctx, EndpointHistory, Options{})
	if err != nil {
		return nil, err
	}

	var resp models.HistoryResponse
	if err := decode(raw, &resp); err != nil {
		return nil, err
	}
	if resp.History == nil {
		return []models.HistoryEntry{}, nil
	}
	return resp.History, nil
}

// ClearAllData purges every document and the chat history on the server.
func (c *Client) ClearAllData(ctx context.Context) error {
	_, err := c.Call(ctx, EndpointClearAllData, Options{Method: http.MethodDelete})
	return err
}

// Health reports the status of the API and its dependencies.
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	raw, err := c.Call(ctx, EndpointHealth, Options{})
	if err != nil {
		return nil, err
	}

	var h models.Health
	if err := decode(raw, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// SystemStats returns document and chat counters.
func (c *Client) SystemStats(ctx context.Context) (*models.SystemStats, error) {
	raw, err := c.Call(ctx, EndpointSystemStats, Options{})
	if err != nil {
		return nil, err
	}

	var s models.SystemStats
	if err := decode(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// decode unmarshals a payload; a nil payload leaves v untouched.
func decode(raw json.RawMessage, v any) error {
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &RequestError{Message: msgInvalidResponse, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
