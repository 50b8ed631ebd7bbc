package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrNoToken is returned by authenticated operations called without a
// bearer token. No request is sent in that case.
var ErrNoToken = errors.New("no auth token")

// maxPlainMessage bounds how much of a plain text error body is shown.
const maxPlainMessage = 200

// APIError is a non-2xx answer from a backend service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the failure is worth another attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500
}

// UserMessage returns the message a backend attached to err, if any,
// falling back to fallback. Used by the pages to fill their error banner.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// newAPIError extracts the message from a failed response body: the JSON
// "message" field, then the "error" field, then short plain text.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Error != "":
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	text := strings.TrimSpace(string(body))
	if text == "" || strings.HasPrefix(text, "<") || !utf8.ValidString(text) {
		return apiErr
	}
	if len(text) > maxPlainMessage {
		return apiErr
	}
	apiErr.Message = text
	return apiErr
}
