// Package api implements the request/response lifecycle client for the
// generation service: task creation, listing, rename, delete, and file
// transfer. It owns no state; confirmed results are applied to the task
// store by the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slidesmith/slidesmith-go/config"
	"github.com/slidesmith/slidesmith-go/internal/domain/model"
	apperrors "github.com/slidesmith/slidesmith-go/internal/errors"
)

// ClientOptions bundles dependencies for NewClient.
type ClientOptions struct {
	Config config.ServerConfig
	Logger *slog.Logger

	// HTTPClient overrides the default client, for tests.
	HTTPClient *http.Client
}

// Client talks to the lifecycle API. Safe for concurrent use.
type Client struct {
	baseURL    string
	retryLimit int
	listLimit  int
	logger     *slog.Logger
	client     *http.Client
}

// NewClient builds a lifecycle API client from a sanitized config.
func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.Config.BaseURL), "/")
	if baseURL == "" {
		return nil, apperrors.Validation("api base url is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Config.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	retries := opts.Config.RetryLimit
	if retries < 0 {
		retries = 0
	}

	listLimit := opts.Config.ListLimit
	if listLimit <= 0 {
		listLimit = 50
	}

	return &Client{
		baseURL:    baseURL,
		retryLimit: retries,
		listLimit:  listLimit,
		logger:     logger,
		client:     hc,
	}, nil
}

// CreateTask submits a new generation task.
func (c *Client) CreateTask(ctx context.Context, req model.CreateTaskRequest) (model.CreateTaskResponse, error) {
	var resp model.CreateTaskResponse
	if err := req.Validate(); err != nil {
		return resp, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid create request")
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/task/create", req, &resp)
	return resp, err
}

// GetTask fetches a point-in-time snapshot of one task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, apperrors.Validation("task id is required")
	}
	var task model.Task
	if err := c.getJSON(ctx, "/api/task/"+url.PathEscape(taskID), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks fetches a bulk snapshot of tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]*model.Task, error) {
	path := "/api/tasks?limit=" + strconv.Itoa(c.listLimit)
	var tasks []*model.Task
	if err := c.getJSON(ctx, path, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// RenameTask updates a task's prompt.
func (c *Client) RenameTask(ctx context.Context, taskID, prompt string) (model.Ack, error) {
	var ack model.Ack
	if strings.TrimSpace(taskID) == "" {
		return ack, apperrors.Validation("task id is required")
	}
	if strings.TrimSpace(prompt) == "" {
		return ack, apperrors.Validation("prompt is required")
	}
	err := c.doJSON(ctx, http.MethodPatch, "/api/task/"+url.PathEscape(taskID),
		model.RenameTaskRequest{Prompt: prompt}, &ack)
	return ack, err
}

// DeleteTask removes a task server-side. The caller applies the confirmed
// result to the store.
func (c *Client) DeleteTask(ctx context.Context, taskID string) (model.Ack, error) {
	var ack model.Ack
	if strings.TrimSpace(taskID) == "" {
		return ack, apperrors.Validation("task id is required")
	}
	err := c.doJSON(ctx, http.MethodDelete, "/api/task/"+url.PathEscape(taskID), nil, &ack)
	return ack, err
}

// doJSON performs one request/response cycle with optional JSON bodies.
// Mutating calls are never retried.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "create request")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeLifecycle, "%s %s failed", method, path)
	}
	return decodeResponse(resp, out)
}

// getJSON performs an idempotent GET with linear-backoff retries.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		lastErr = c.doJSON(ctx, http.MethodGet, path, nil, out)
		if lastErr == nil {
			return nil
		}
		// Client-errors are deterministic; retrying cannot help.
		if status := apperrors.StatusCode(lastErr); status >= 400 && status < 500 {
			return lastErr
		}
		if attempt < attempts-1 {
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return lifecycleError(resp)
	}

	if out == nil {
		return drainBody(resp)
	}

	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeLifecycle, "decode response body")
	}
	return nil
}

// lifecycleError builds the error surfaced to the caller of a failed call:
// the server's detail message when one can be decoded, otherwise a generic
// status-derived message.
func lifecycleError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if readErr == nil && len(body) > 0 {
		var detail struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
			return apperrors.Lifecycle(resp.StatusCode, detail.Detail)
		}
	}
	return apperrors.Lifecycle(resp.StatusCode, fmt.Sprintf("server returned %s", resp.Status))
}

func drainBody(resp *http.Response) error {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		_ = resp.Body.Close()
		return apperrors.Wrap(err, apperrors.ErrCodeLifecycle, "drain response body")
	}
	if err := resp.Body.Close(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeLifecycle, "close response body")
	}
	return nil
}
