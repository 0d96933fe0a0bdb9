package mapi

import (
	"fmt"
	"strings"
)

// APIError is a non-success response returned by the Management API.
type APIError struct {
	StatusCode       int
	RequestID        string
	ErrorCode        int
	Message          string
	ValidationErrors []string
}

func (e *APIError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("management API error (status %d)", e.StatusCode))
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if len(e.ValidationErrors) > 0 {
		sb.WriteString(" [")
		sb.WriteString(strings.Join(e.ValidationErrors, "; "))
		sb.WriteString("]")
	}
	if e.RequestID != "" {
		sb.WriteString(fmt.Sprintf(" (request %s)", e.RequestID))
	}
	return sb.String()
}

// RequestError represents a failure to perform a request or decode its response.
type RequestError struct {
	Method  string
	URL     string
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}
