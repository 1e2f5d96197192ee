package api

import (
	"fmt"
	"net/http"

	"mldash/internal/errors"

	"github.com/tidwall/gjson"
)

// APIError is a failed backend call with the message to show the user
type APIError struct {
	StatusCode int // 0 when no response was received
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// UserMessage picks the message for a failed response: the body's detail
// (re-encoded as JSON when it is not a string), then its message, then a
// generic text for the status.
func UserMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		if detail := gjson.GetBytes(body, "detail"); detail.Exists() && detail.Type != gjson.Null {
			if detail.Type == gjson.String {
				if detail.Str != "" {
					return detail.Str
				}
			} else {
				return detail.Raw
			}
		}
		if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String && msg.Str != "" {
			return msg.Str
		}
	}

	switch status {
	case http.StatusBadRequest:
		return "Invalid request. Check the submitted data."
	case http.StatusNotFound:
		return "Resource not found."
	case http.StatusInternalServerError:
		return "Internal server error. Try again."
	default:
		return fmt.Sprintf("Server error: %d", status)
	}
}

func unreachableMessage(baseURL string) string {
	return fmt.Sprintf("Could not reach the backend. Check that it is running at %s", baseURL)
}

// MessageOf returns the user-facing message carried by err, falling back
// to err.Error().
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
