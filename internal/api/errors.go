package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrMalformedResponse is returned when a response body does not parse
// into the expected entity or fails validation.
var ErrMalformedResponse = errors.New("malformed response")

// APIError is a non-2xx response from the REST API.
type APIError struct {
	StatusCode int
	// Message is the server-provided human message ("detail", "message",
	// "error" or the first field error), empty when none was sent.
	Message string
	// Fields holds per-field validation messages, including
	// "non_field_errors".
	Fields map[string][]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// IsConflict reports whether err is the server's uniqueness violation on
// cart or wishlist creation. Django REST Framework reports these as a 400
// with a "must make a unique set" non-field error; some deployments send
// 409 instead.
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusConflict {
		return true
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		return false
	}
	if mentionsUniqueness(apiErr.Message) {
		return true
	}
	for _, msgs := range apiErr.Fields {
		for _, m := range msgs {
			if mentionsUniqueness(m) {
				return true
			}
		}
	}
	return false
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 or 403 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden)
}

// Message returns the server-provided message carried by err, or fallback
// when there is none.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func mentionsUniqueness(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "unique") ||
		strings.Contains(s, "already exists") ||
		strings.Contains(s, "already in")
}

// parseError builds an APIError from a response body. Unknown shapes keep
// only the status code.
func parseError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		var list []string
		if json.Unmarshal(body, &list) == nil && len(list) > 0 {
			apiErr.Message = list[0]
		}
		return apiErr
	}

	for _, key := range []string{"detail", "message", "error"} {
		if raw, ok := obj[key]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				apiErr.Message = s
				break
			}
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msgs := fieldMessages(obj[k])
		if len(msgs) == 0 {
			continue
		}
		if apiErr.Fields == nil {
			apiErr.Fields = make(map[string][]string)
		}
		apiErr.Fields[k] = msgs
	}

	if apiErr.Message == "" {
		if msgs := apiErr.Fields["non_field_errors"]; len(msgs) > 0 {
			apiErr.Message = msgs[0]
		} else {
			for _, k := range keys {
				if msgs := apiErr.Fields[k]; len(msgs) > 0 {
					apiErr.Message = k + ": " + msgs[0]
					break
				}
			}
		}
	}
	return apiErr
}

func fieldMessages(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}
