package api

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// messageKeys are tried in order when pulling a human message out of an error body.
var messageKeys = []string{"detail", "error", "message"}

func newAPIError(resp *resty.Response) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode(),
		Message:    errorMessage(resp.StatusCode(), resp.Body()),
	}
}

func errorMessage(status int, body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range messageKeys {
			if v, ok := fields[key]; ok {
				if s, ok := v.(string); ok && s != "" {
					return s
				}
			}
		}
		// DRF field errors: {"new_balance": ["This field is required."]}
		for _, key := range slices.Sorted(maps.Keys(fields)) {
			if list, ok := fields[key].([]any); ok && len(list) > 0 {
				if s, ok := list[0].(string); ok {
					return key + ": " + s
				}
			}
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	return http.StatusText(status)
}
