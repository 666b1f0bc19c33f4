package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// APIError is returned for every non-2xx response of the resource API.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Body    []byte
	Message string
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("request failed: %d", status)
	}
	return &APIError{Method: method, Path: path, Status: status, Body: body, Message: msg}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// StatusCode returns the HTTP status of the response.
func (e *APIError) StatusCode() int { return e.Status }

// ResponseBody returns the raw response body.
func (e *APIError) ResponseBody() []byte { return e.Body }

// Is maps 404 to types.ErrNotFound and 401/403 to types.ErrForbidden.
func (e *APIError) Is(target error) bool {
	switch target {
	case types.ErrNotFound:
		return e.Status == http.StatusNotFound
	case types.ErrForbidden:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	}
	return false
}

var _ types.StatusError = (*APIError)(nil)
