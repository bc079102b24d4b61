package clerk

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidPublishableKey indicates a key that does not encode a Frontend API host
	ErrInvalidPublishableKey = errors.New("invalid clerk publishable key")
	// ErrNoSession indicates the client has no active session
	ErrNoSession = errors.New("no active session")
	// ErrInvalidToken indicates a session token that cannot be parsed
	ErrInvalidToken = errors.New("invalid session token")
)

// Fallback messages used when Clerk reports no message of its own
const (
	FallbackSignIn = "Unable to sign in. Please check your credentials."
	FallbackSignUp = "Unable to create account."
	FallbackVerify = "Invalid or expired code."
)

// ErrorDetail is one entry of a Clerk error response
type ErrorDetail struct {
	Message     string `json:"message"`
	LongMessage string `json:"long_message"`
	Code        string `json:"code"`
}

// Error is a failed Clerk request
type Error struct {
	StatusCode int
	Errors     []ErrorDetail
	fallback   string
}

// Error returns the first message Clerk reported, or the fallback
func (e *Error) Error() string {
	for _, d := range e.Errors {
		if d.Message != "" {
			return d.Message
		}
		if d.LongMessage != "" {
			return d.LongMessage
		}
	}
	if e.fallback != "" {
		return e.fallback
	}
	return fmt.Sprintf("clerk request failed with status %d", e.StatusCode)
}

// Code returns the code of the first reported error
func (e *Error) Code() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Code
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *Error) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

type errorResponse struct {
	Errors []ErrorDetail `json:"errors"`
}

func newError(statusCode int, body []byte) *Error {
	e := &Error{StatusCode: statusCode}
	var resp errorResponse
	if json.Unmarshal(body, &resp) == nil {
		e.Errors = resp.Errors
	}
	return e
}

// withFallback sets the message shown when err carries none of its own
func withFallback(err error, fallback string) error {
	var clerkErr *Error
	if errors.As(err, &clerkErr) && clerkErr.fallback == "" {
		clerkErr.fallback = fallback
	}
	return err
}
