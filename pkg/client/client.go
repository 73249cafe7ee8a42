// Package client is the remote embedding of the board engine: a thin
// HTTP/JSON mirror of the engine operations plus the caller-owned
// polling loop that drives change detection.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)

type Task struct {
	ID          string    `json:"id"`
	ProgramID   string    `json:"program_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Color       string    `json:"color"`
	Priority    string    `json:"priority"`
	OrderIndex  int       `json:"order_index"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

type ColumnConfig struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Color string `json:"color,omitempty"`
}

// Conflict mirrors the server's 409 payload. ClientAttempt is the
// request body the server rejected, echoed back verbatim.
type Conflict struct {
	ServerTask    Task            `json:"server_task"`
	ClientAttempt json.RawMessage `json:"client_attempt"`
}

type Client struct {
	logger  zerolog.Logger
	baseURL string
	http    *http.Client
}

func New(logger zerolog.Logger, baseURL string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/api/v1") {
		baseURL += "/api/v1"
	}

	return &Client{
		logger:  logger,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type CreateTaskRequest struct {
	ProgramID   string `json:"program_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Color       string `json:"color,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	task := new(Task)
	err := c.do(ctx, http.MethodPost, "/tasks", req, task)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (c *Client) GetProgramTasks(ctx context.Context, programID string) ([]Task, error) {
	var tasks []Task
	err := c.do(ctx, http.MethodGet, "/programs/"+programID+"/tasks", nil, &tasks)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

type UpdateTaskRequest struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	Status          *string `json:"status,omitempty"`
	Color           *string `json:"color,omitempty"`
	Priority        *string `json:"priority,omitempty"`
	ExpectedVersion *int64  `json:"expected_version,omitempty"`
}

func (c *Client) UpdateTask(ctx context.Context, taskID string, req UpdateTaskRequest) (*Task, *Conflict, error) {
	return c.doMutation(ctx, http.MethodPut, "/tasks/"+taskID, req)
}

func (c *Client) UpdateTaskStatus(ctx context.Context, taskID, status string, expectedVersion *int64) (*Task, *Conflict, error) {
	body := struct {
		Status          string `json:"status"`
		ExpectedVersion *int64 `json:"expected_version,omitempty"`
	}{status, expectedVersion}
	return c.doMutation(ctx, http.MethodPatch, "/tasks/"+taskID+"/status", body)
}

func (c *Client) ReorderTask(ctx context.Context, taskID string, newIndex int, expectedVersion *int64) (*Task, *Conflict, error) {
	body := struct {
		NewIndex        int    `json:"new_index"`
		ExpectedVersion *int64 `json:"expected_version,omitempty"`
	}{newIndex, expectedVersion}
	return c.doMutation(ctx, http.MethodPatch, "/tasks/"+taskID+"/reorder", body)
}

func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+taskID, nil, nil)
}

func (c *Client) GetColumns(ctx context.Context, programID string) ([]ColumnConfig, error) {
	var response struct {
		Columns []ColumnConfig `json:"columns"`
	}
	err := c.do(ctx, http.MethodGet, "/programs/"+programID+"/kanban-config", nil, &response)
	if err != nil {
		return nil, err
	}
	return response.Columns, nil
}

func (c *Client) SaveColumns(ctx context.Context, programID string, columns []ColumnConfig) error {
	body := struct {
		Columns []ColumnConfig `json:"columns"`
	}{columns}
	return c.do(ctx, http.MethodPut, "/programs/"+programID+"/kanban-config", body, nil)
}

func (c *Client) MoveColumn(ctx context.Context, programID, columnID string, newPosition int) error {
	body := struct {
		ColumnID    string `json:"column_id"`
		NewPosition int    `json:"new_position"`
	}{columnID, newPosition}
	return c.do(ctx, http.MethodPatch, "/programs/"+programID+"/kanban-config/move", body, nil)
}

func (c *Client) DeleteColumn(ctx context.Context, programID, columnID string) error {
	return c.do(ctx, http.MethodDelete, "/programs/"+programID+"/kanban-config/columns/"+columnID, nil, nil)
}

// TaskVersions fetches the poller's snapshot endpoint.
func (c *Client) TaskVersions(ctx context.Context, programID string) (map[string]int64, error) {
	snapshot := make(map[string]int64)
	err := c.do(ctx, http.MethodGet, "/programs/"+programID+"/tasks/versions", nil, &snapshot)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// doMutation performs a version-checked task mutation. A 409 is not an
// error: it decodes the server's conflict payload for the caller's
// reconciliation policy.
func (c *Client) doMutation(ctx context.Context, method, path string, body any) (*Task, *Conflict, error) {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusConflict {
		var payload struct {
			Conflict Conflict `json:"conflict"`
		}
		err = json.NewDecoder(resp.Body).Decode(&payload)
		if err != nil {
			return nil, nil, fmt.Errorf("decode conflict response: %w", err)
		}
		return nil, &payload.Conflict, nil
	}

	err = checkStatus(resp)
	if err != nil {
		return nil, nil, err
	}

	task := new(Task)
	err = json.NewDecoder(resp.Body).Decode(task)
	if err != nil {
		return nil, nil, fmt.Errorf("decode task response: %w", err)
	}
	return task, nil, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	err = checkStatus(resp)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Msg("api request")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("method", method).
			Str("path", path).
			Msg("api request failed")
		return nil, err
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	message := strings.TrimSpace(string(readBody(resp)))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, message)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, message)
	}
}

func readBody(resp *http.Response) []byte {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return nil
	}
	return raw
}
