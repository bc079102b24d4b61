package appwrite

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/s0up4200/reelbox/docstore"
)

// APIError represents an Appwrite API error
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Message:    http.StatusText(status),
	}
	var resp errorResponse
	if json.Unmarshal(body, &resp) == nil && resp.Message != "" {
		apiErr.Message = resp.Message
		apiErr.Type = resp.Type
	}
	return apiErr
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("appwrite API error: status %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("appwrite API error: status %d: %s", e.StatusCode, e.Message)
}

// Is maps 404 responses onto docstore.ErrNotFound
func (e *APIError) Is(target error) bool {
	return target == docstore.ErrNotFound && e.IsNotFound()
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication or permission failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
