package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("ledger: not found")
	ErrUnauthorized = errors.New("ledger: not authorized")
)

// APIError is a non-2xx answer from the ledger API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Fields     map[string][]string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// UserMessage is the text shown to the user: the detail message, or the field
// errors as "field: msg; field: msg".
func (e *APIError) UserMessage() string {
	if len(e.Fields) == 0 {
		if e.Message != "" {
			return e.Message
		}
		return http.StatusText(e.StatusCode)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	if e.Message != "" {
		parts = append([]string{e.Message}, parts...)
	}
	return strings.Join(parts, "; ")
}

// newAPIError decodes a DRF-style body: {"detail": "..."} or
// {"field": ["msg", ...], "non_field_errors": [...]}.
func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{Method: method, Path: path, StatusCode: status}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		e.Message = strings.TrimSpace(string(body))
		if len(e.Message) > 200 {
			e.Message = e.Message[:200]
		}
		return e
	}
	for k, v := range raw {
		if k == "detail" {
			var s string
			if json.Unmarshal(v, &s) == nil {
				e.Message = s
			}
			continue
		}
		var list []string
		if json.Unmarshal(v, &list) != nil {
			var s string
			if json.Unmarshal(v, &s) != nil {
				continue
			}
			list = []string{s}
		}
		if e.Fields == nil {
			e.Fields = make(map[string][]string)
		}
		e.Fields[k] = list
	}
	return e
}
