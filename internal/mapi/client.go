// Package mapi provides a client for the environment validation endpoints of the Kontent.ai Management API.
package mapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jonathan/env-validator/internal/types"
)

// Client talks to the Management API for a single environment.
type Client struct {
	APIKey        string
	EnvironmentID string
	BaseURL       string
	HTTPClient    *http.Client
	Limiter       *rate.Limiter
	Logger        *zap.Logger
}

// NewClient creates a new Management API client.
func NewClient(apiKey, environmentID string) *Client {
	return &Client{
		APIKey:        apiKey,
		EnvironmentID: environmentID,
		BaseURL:       DefaultBaseURL,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		Limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		Logger:  zap.NewNop(),
	}
}

// WithHTTPClient returns a new client with a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	clone := *c
	clone.HTTPClient = httpClient
	return &clone
}

// WithBaseURL returns a new client with a custom base URL (for testing or regional endpoints).
func (c *Client) WithBaseURL(baseURL string) *Client {
	clone := *c
	clone.BaseURL = baseURL
	return &clone
}

// WithRateLimit returns a new client paced at rps requests per second.
// A non-positive value disables pacing.
func (c *Client) WithRateLimit(rps float64) *Client {
	clone := *c
	if rps <= 0 {
		clone.Limiter = rate.NewLimiter(rate.Inf, 1)
	} else {
		clone.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &clone
}

// WithLogger returns a new client that logs requests to logger.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	clone := *c
	clone.Logger = logger
	return &clone
}

// projectPath returns the path prefix for the configured environment.
func (c *Client) projectPath() string {
	return "/projects/" + url.PathEscape(c.EnvironmentID)
}

// taskPath returns the path of a validation task.
func (c *Client) taskPath(taskID string) string {
	return c.projectPath() + "/validate-async/tasks/" + url.PathEscape(taskID)
}

// EnvironmentInformation returns the project and environment names.
func (c *Client) EnvironmentInformation(ctx context.Context) (*types.EnvironmentInfo, error) {
	var info types.EnvironmentInfo
	if err := c.doJSON(ctx, http.MethodGet, c.projectPath(), nil, nil, &info); err != nil {
		return nil, fmt.Errorf("failed to get environment information: %w", err)
	}
	if err := info.Validate(); err != nil {
		return nil, c.malformed(http.MethodGet, c.projectPath(), err)
	}
	return &info, nil
}

// StartEnvironmentValidation starts an asynchronous validation of the environment.
func (c *Client) StartEnvironmentValidation(ctx context.Context) (*types.ValidationTask, error) {
	path := c.projectPath() + "/validate-async"

	var task types.ValidationTask
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil, &task); err != nil {
		return nil, fmt.Errorf("failed to start environment validation: %w", err)
	}
	if err := task.Validate(); err != nil {
		return nil, c.malformed(http.MethodPost, path, err)
	}
	return &task, nil
}

// CheckEnvironmentValidation returns the current state of a validation task.
func (c *Client) CheckEnvironmentValidation(ctx context.Context, taskID string) (*types.ValidationTask, error) {
	path := c.taskPath(taskID)

	var task types.ValidationTask
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &task); err != nil {
		return nil, fmt.Errorf("failed to check environment validation: %w", err)
	}
	if err := task.Validate(); err != nil {
		return nil, c.malformed(http.MethodGet, path, err)
	}
	return &task, nil
}

// ListEnvironmentValidationIssues returns every validation item of a finished
// task, following continuation tokens until the last page.
func (c *Client) ListEnvironmentValidationIssues(ctx context.Context, taskID string) ([]types.ValidationItem, error) {
	path := c.taskPath(taskID) + "/issues"

	var all []types.ValidationItem
	token := ""
	seen := make(map[string]struct{})
	for page := 1; ; page++ {
		headers := map[string]string{}
		if token != "" {
			headers[ContinuationHeader] = token
		}

		var resp issuesPage
		if err := c.doJSON(ctx, http.MethodGet, path, nil, headers, &resp); err != nil {
			return nil, fmt.Errorf("failed to list validation issues (page %d): %w", page, err)
		}
		all = append(all, resp.Issues...)

		next := resp.Pagination.next()
		if next == "" {
			break
		}
		if _, dup := seen[next]; dup {
			return nil, &RequestError{
				Method:  http.MethodGet,
				URL:     c.BaseURL + path,
				Message: fmt.Sprintf("continuation token did not advance after page %d (token repeated)", page),
			}
		}
		seen[next] = struct{}{}
		token = next
	}

	c.Logger.Debug("listed validation issues",
		zap.String("task_id", taskID),
		zap.Int("items", len(all)))
	return all, nil
}

func (c *Client) malformed(method, path string, err error) error {
	return &RequestError{
		Method:  method,
		URL:     c.BaseURL + path,
		Message: "malformed response",
		Cause:   err,
	}
}

// doJSON performs a request and decodes a JSON response body into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	respBody, err := c.doRequest(ctx, method, path, body, headers)
	if err != nil {
		return err
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &RequestError{
			Method:  method,
			URL:     c.BaseURL + path,
			Message: "failed to parse response",
			Cause:   err,
		}
	}
	return nil
}

// doRequest performs an authenticated HTTP request. Requests are paced by the
// client's limiter but never retried.
func (c *Client) doRequest(ctx context.Context, method, path string, body any, headers map[string]string) ([]byte, error) {
	urlStr := c.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, &RequestError{Method: method, URL: urlStr, Message: "failed to marshal request body", Cause: err}
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, &RequestError{Method: method, URL: urlStr, Message: "rate limiter wait aborted", Cause: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
	if err != nil {
		return nil, &RequestError{Method: method, URL: urlStr, Message: "failed to create request", Cause: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &RequestError{Method: method, URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &RequestError{Method: method, URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	c.Logger.Debug("management API request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// newAPIError builds an APIError from an error response body. Bodies that
// are not the documented error shape are kept as the message.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Message == "" {
		apiErr.Message = string(bytes.TrimSpace(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	apiErr.RequestID = parsed.RequestID
	apiErr.ErrorCode = parsed.ErrorCode
	apiErr.Message = parsed.Message
	for _, ve := range parsed.ValidationErrors {
		msg := ve.Message
		if ve.Path != "" {
			msg = ve.Path + ": " + msg
		}
		apiErr.ValidationErrors = append(apiErr.ValidationErrors, msg)
	}
	return apiErr
}
