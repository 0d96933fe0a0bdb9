package mapi

import (
	"time"

	"github.com/jonathan/env-validator/internal/types"
)

// API configuration constants.
const (
	// DefaultBaseURL is the Management API v2 endpoint.
	DefaultBaseURL = "https://manage.kontent.ai/v2"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond keeps the client under the service rate limit.
	DefaultRequestsPerSecond = 10.0

	// ContinuationHeader carries the pagination token on list requests.
	ContinuationHeader = "x-continuation"

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 50 * 1024 * 1024
)

// issuesPage is one page of the validation issues listing.
type issuesPage struct {
	Issues     []types.ValidationItem `json:"issues"`
	Pagination pagination             `json:"pagination"`
}

type pagination struct {
	ContinuationToken *string `json:"continuation_token"`
	NextPage          *string `json:"next_page"`
}

// next returns the token for the following page, or "" when this was the last page.
func (p pagination) next() string {
	if p.ContinuationToken == nil {
		return ""
	}
	return *p.ContinuationToken
}

// errorResponse is the error body returned with non-success statuses.
type errorResponse struct {
	RequestID        string            `json:"request_id"`
	ErrorCode        int               `json:"error_code"`
	Message          string            `json:"message"`
	ValidationErrors []validationError `json:"validation_errors"`
}

type validationError struct {
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}
