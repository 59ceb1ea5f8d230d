package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is returned for responses with a 4xx or 5xx status.
type HTTPError struct {
	StatusCode int
	Path       string
	// Fields holds the decoded error body when the server sent a JSON object,
	// typically field name -> list of messages.
	Fields map[string]any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("api %s returned status %d", e.Path, e.StatusCode)
}

// Status returns the HTTP status code.
func (e *HTTPError) Status() int {
	return e.StatusCode
}

func newHTTPError(path string, status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Path: path}
	var fields map[string]any
	if json.Unmarshal(body, &fields) == nil && len(fields) > 0 {
		e.Fields = fields
	}
	return e
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not
// an HTTP error (including connectivity failures).
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsAuthError reports whether err is a 401 response.
func IsAuthError(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// FieldMessage returns the first server message for field, if any.
func (e *HTTPError) FieldMessage(field string) string {
	switch v := e.Fields[field].(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
