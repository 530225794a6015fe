// errors.go - Structured error handling for console responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/datachat/console/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ShowErrorDetails includes the underlying error text in responses.
// Set from configuration at startup.
var ShowErrorDetails = false

// APIError represents a structured error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// ErrorHandler renders every handler error as an APIError.
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
	}

	if apiErr.Status >= http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"path":  c.Request().URL.Path,
			"code":  apiErr.Code,
			"error": err,
		}).Error("request failed")
	}

	resp := *apiErr
	if !ShowErrorDetails {
		resp.Details = ""
	} else if resp.Details == "" && resp.Code == "UNKNOWN_ERROR" {
		resp.Details = err.Error()
	}

	if err := c.JSON(resp.Status, resp); err != nil {
		logger.Warn("writing error response: ", err)
	}
}
