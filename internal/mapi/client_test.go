package mapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/env-validator/internal/types"
)

func newTestClient(serverURL string) *Client {
	return NewClient("test-key", "env-1").WithBaseURL(serverURL).WithRateLimit(0)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("key", "env")
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, DefaultTimeout, c.HTTPClient.Timeout)
	assert.NotNil(t, c.Limiter)
	assert.NotNil(t, c.Logger)
}

func TestWithMethods_DoNotMutateOriginal(t *testing.T) {
	c := NewClient("key", "env")
	custom := &http.Client{Timeout: time.Second}

	other := c.WithBaseURL("http://localhost").WithHTTPClient(custom)

	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, "http://localhost", other.BaseURL)
	assert.Same(t, custom, other.HTTPClient)
	assert.NotSame(t, custom, c.HTTPClient)
}

func TestEnvironmentInformation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/projects/env-1", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(t, w, http.StatusOK, map[string]string{
			"id":          "env-1",
			"name":        "Sample Project",
			"environment": "Production",
		})
	}))
	defer server.Close()

	info, err := newTestClient(server.URL).EnvironmentInformation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Sample Project", info.Name)
	assert.Equal(t, "Production", info.Environment)
}

func TestStartEnvironmentValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects/env-1/validate-async", r.URL.Path)
		writeJSON(t, w, http.StatusAccepted, map[string]string{"id": "task-1", "status": "queued"})
	}))
	defer server.Close()

	task, err := newTestClient(server.URL).StartEnvironmentValidation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, types.TaskStatusQueued, task.Status)
}

func TestStartEnvironmentValidation_MissingTaskID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusAccepted, map[string]string{"status": "queued"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).StartEnvironmentValidation(context.Background())
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "malformed response", reqErr.Message)
}

func TestCheckEnvironmentValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/env-1/validate-async/tasks/task-1", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]string{"id": "task-1", "status": "finished"})
	}))
	defer server.Close()

	task, err := newTestClient(server.URL).CheckEnvironmentValidation(context.Background(), "task-1")
	require.NoError(t, err)
	assert.True(t, task.Status.IsFinished())
}

func TestCheckEnvironmentValidation_UnknownStatusPassedThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{"id": "task-1", "status": "paused"})
	}))
	defer server.Close()

	task, err := newTestClient(server.URL).CheckEnvironmentValidation(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatus("paused"), task.Status)
	assert.False(t, task.Status.IsTerminal())
}

func issue(codename string) map[string]any {
	return map[string]any{
		"issue_type": "variant_issue",
		"item":       map[string]string{"codename": codename},
		"language":   map[string]string{"codename": "default"},
		"issues": []map[string]any{
			{"element": map[string]string{"codename": "title"}, "messages": []string{"Required"}},
		},
	}
}

func TestListEnvironmentValidationIssues_FollowsPagination(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/projects/env-1/validate-async/tasks/task-1/issues", r.URL.Path)

		switch r.Header.Get(ContinuationHeader) {
		case "":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"issues":     []any{issue("home"), issue("about")},
				"pagination": map[string]any{"continuation_token": "page-2", "next_page": "/issues"},
			})
		case "page-2":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"issues":     []any{issue("contact")},
				"pagination": map[string]any{"continuation_token": "page-3", "next_page": "/issues"},
			})
		case "page-3":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"issues":     []any{issue("blog")},
				"pagination": map[string]any{"continuation_token": nil, "next_page": nil},
			})
		default:
			t.Errorf("unexpected continuation token %q", r.Header.Get(ContinuationHeader))
		}
	}))
	defer server.Close()

	items, err := newTestClient(server.URL).ListEnvironmentValidationIssues(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	var codenames []string
	for _, item := range items {
		codenames = append(codenames, item.Item.Codename)
	}
	assert.Equal(t, []string{"home", "about", "contact", "blog"}, codenames)
}

func TestListEnvironmentValidationIssues_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"issues": []any{}, "pagination": map[string]any{}})
	}))
	defer server.Close()

	items, err := newTestClient(server.URL).ListEnvironmentValidationIssues(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListEnvironmentValidationIssues_StuckToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"issues":     []any{issue("home")},
			"pagination": map[string]any{"continuation_token": "same"},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListEnvironmentValidationIssues(context.Background(), "task-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not advance")
}

func TestListEnvironmentValidationIssues_TokenCycle(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n > 10 {
			t.Errorf("pagination did not stop after %d pages", n-1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		// A -> B -> A ...
		next := "A"
		if r.Header.Get(ContinuationHeader) == "A" {
			next = "B"
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"issues":     []any{issue("home")},
			"pagination": map[string]any{"continuation_token": next},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListEnvironmentValidationIssues(context.Background(), "task-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token repeated")
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPIError_Decoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{
			"request_id": "req-42",
			"error_code": 7,
			"message":    "The provided API key is invalid.",
			"validation_errors": []map[string]string{
				{"message": "Key expired", "path": "authorization"},
			},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).StartEnvironmentValidation(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "req-42", apiErr.RequestID)
	assert.Equal(t, 7, apiErr.ErrorCode)
	assert.Equal(t, []string{"authorization: Key expired"}, apiErr.ValidationErrors)
	assert.Contains(t, err.Error(), "failed to start environment validation")
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "req-42")
}

func TestAPIError_PlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = fmt.Fprint(w, "upstream unavailable")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CheckEnvironmentValidation(context.Background(), "task-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}

func TestMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).EnvironmentInformation(context.Background())

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "failed to parse response", reqErr.Message)
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	serverURL := server.URL
	server.Close()

	_, err := newTestClient(serverURL).EnvironmentInformation(context.Background())

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "HTTP request failed", reqErr.Message)
}

func TestCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{"id": "task-1", "status": "queued"})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("k", "env-1").WithBaseURL(server.URL).StartEnvironmentValidation(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTaskIDIsPathEscaped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/env-1/validate-async/tasks/a%2Fb", r.URL.EscapedPath())
		writeJSON(t, w, http.StatusOK, map[string]string{"id": "a/b", "status": "queued"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CheckEnvironmentValidation(context.Background(), "a/b")
	require.NoError(t, err)
}
