// Package client implements the sync side of the task list: every
// lifecycle action against the REST backend, with local validation ahead
// of the network and a discriminated error outcome for every failure.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

const errorBodyMaxSize = 64 * 1024 // 64 KiB

// Client talks to the task backend over HTTP. All methods resolve to a
// value-or-error outcome; nothing panics past the component boundary.
type Client struct {
	baseURL string
	http    *http.Client
	log     *log.Logger
}

// New creates a Client for the given base URL. A nil httpClient falls
// back to a default with the platform's standard timeout behaviour.
func New(baseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     logger,
	}
}

// OrderUpdate assigns an explicit order value to one task. A slice of
// these renumbers the list through PUT /api/tasks/reorder.
type OrderUpdate struct {
	ID    int64 `json:"id"`
	Order int   `json:"order"`
}

// BatchResult is the backend's summary of a batch mutation. The backend
// skips ids that no longer exist, so Affected may be less than the
// number of ids submitted; a 2xx response still counts as success and
// the follow-up refetch reconciles the view.
type BatchResult struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
	Deleted int    `json:"deleted"`
}

// Affected is the number of rows the backend reports as touched.
func (r BatchResult) Affected() int {
	if r.Deleted > 0 {
		return r.Deleted
	}
	return r.Updated
}

// FetchTasks retrieves the task list constrained by the filter spec.
func (c *Client) FetchTasks(ctx context.Context, filter domain.FilterSpec) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", filter.Query(), nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// CreateTask validates the draft locally and creates it remotely. A
// doomed request never reaches the network.
func (c *Client) CreateTask(ctx context.Context, draft domain.TaskDraft) (domain.Task, error) {
	if err := draft.Validate(); err != nil {
		return domain.Task{}, err
	}
	draft.Content = strings.TrimSpace(draft.Content)
	if draft.Priority == "" {
		draft.Priority = domain.PriorityMedium
	}
	var created domain.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", nil, draft, &created); err != nil {
		return domain.Task{}, err
	}
	return created, nil
}

// UpdateTask sends only the fields the patch changes.
func (c *Client) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}
	if patch.IsZero() {
		return domain.Task{}, &domain.ValidationError{Field: "patch", Reason: "no fields to update"}
	}
	var updated domain.Task
	path := fmt.Sprintf("/api/tasks/%d", id)
	if err := c.do(ctx, http.MethodPut, path, nil, patch.Fields(), &updated); err != nil {
		return domain.Task{}, err
	}
	return updated, nil
}

// DeleteTask removes one task remotely.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", id), nil, nil, nil)
}

// BatchComplete sets the completed flag on every listed task in one
// request. Reported as a single success or failure.
func (c *Client) BatchComplete(ctx context.Context, ids []int64, completed bool) (BatchResult, error) {
	if len(ids) == 0 {
		return BatchResult{}, &domain.ValidationError{Field: "task_ids", Reason: "no tasks selected"}
	}
	body := map[string]any{"task_ids": ids, "completed": completed}
	var res BatchResult
	if err := c.do(ctx, http.MethodPut, "/api/tasks/batch", nil, body, &res); err != nil {
		return BatchResult{}, err
	}
	return res, nil
}

// BatchDelete removes every listed task in one request.
func (c *Client) BatchDelete(ctx context.Context, ids []int64) (BatchResult, error) {
	if len(ids) == 0 {
		return BatchResult{}, &domain.ValidationError{Field: "task_ids", Reason: "no tasks selected"}
	}
	body := map[string]any{"task_ids": ids}
	var res BatchResult
	if err := c.do(ctx, http.MethodDelete, "/api/tasks/batch", nil, body, &res); err != nil {
		return BatchResult{}, err
	}
	return res, nil
}

// ReorderTasks persists explicit order values for several tasks at once.
// Used when the list has no integer gap left for a single-task move.
func (c *Client) ReorderTasks(ctx context.Context, orders []OrderUpdate) error {
	if len(orders) == 0 {
		return &domain.ValidationError{Field: "task_orders", Reason: "no order updates"}
	}
	body := map[string]any{"task_orders": orders}
	return c.do(ctx, http.MethodPut, "/api/tasks/reorder", nil, body, nil)
}

// FetchCategories retrieves all categories.
func (c *Client) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, nil
}

// CreateCategory validates and creates a category.
func (c *Client) CreateCategory(ctx context.Context, draft domain.CategoryDraft) (domain.Category, error) {
	if err := draft.Validate(); err != nil {
		return domain.Category{}, err
	}
	draft.Name = strings.TrimSpace(draft.Name)
	var created domain.Category
	if err := c.do(ctx, http.MethodPost, "/api/categories", nil, draft, &created); err != nil {
		return domain.Category{}, err
	}
	return created, nil
}

// DeleteCategory removes a category. Tasks referencing it keep their
// dangling reference until the next refetch.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/categories/%d", id), nil, nil, nil)
}

// FetchStats retrieves the aggregate counts from the stats endpoint.
func (c *Client) FetchStats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, nil, &stats); err != nil {
		return domain.Stats{}, err
	}
	return stats, nil
}

// do performs one HTTP exchange: encode, send, classify, decode.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (err error) {
	metrics, ctx := newOpMetrics(ctx, c.log, method+" "+path, path)
	status := 0
	defer func() {
		metrics.Log(status, err)
	}()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, marshalErr := sonic.ConfigStd.Marshal(body)
		if marshalErr != nil {
			metrics.SetErrorStage("encode_request")
			err = fmt.Errorf("encode request: %w", marshalErr)
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, reqErr := http.NewRequestWithContext(ctx, method, u, reader)
	if reqErr != nil {
		metrics.SetErrorStage("build_request")
		err = fmt.Errorf("build request: %w", reqErr)
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	metrics.SetRequestID(requestID)

	sendStart := time.Now()
	resp, sendErr := c.http.Do(req)
	metrics.ObserveRequest(time.Since(sendStart))
	if sendErr != nil {
		metrics.SetErrorStage("transport")
		err = &NetworkError{Op: method + " " + path, Err: sendErr}
		return err
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SetErrorStage("server")
		err = &ServerError{Status: resp.StatusCode, Message: decodeErrorMessage(resp.Body)}
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	decodeStart := time.Now()
	decodeErr := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out)
	metrics.ObserveDecode(time.Since(decodeStart))
	if decodeErr != nil {
		metrics.SetErrorStage("decode_response")
		err = fmt.Errorf("decode response: %w", decodeErr)
		return err
	}
	return nil
}

// decodeErrorMessage pulls the backend's {"error": "..."} payload out of
// a failed response, best effort.
func decodeErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, errorBodyMaxSize))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := sonic.ConfigStd.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		return strings.TrimSpace(string(data))
	}
	return payload.Error
}
