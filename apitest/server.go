// Package apitest provides an in-memory implementation of the task
// backend's REST surface for exercising the sync client against real
// HTTP exchanges. It mirrors the backend's observable semantics: order
// assignment on create, filter handling, batch mutations that skip
// missing ids, and category deletion nulling out task references.
package apitest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"taskboard/domain"
)

type taskRec struct {
	task       domain.Task
	createdSeq int64
}

// Server is an in-memory task backend listening on a local port.
type Server struct {
	httpSrv  *httptest.Server
	requests atomic.Int64

	mu         sync.Mutex
	tasks      map[int64]*taskRec
	categories map[int64]domain.Category
	nextTask   int64
	nextCat    int64
	createdSeq int64
}

// New starts the fixture server. Callers must Close it.
func New() *Server {
	s := &Server{
		tasks:      make(map[int64]*taskRec),
		categories: make(map[int64]domain.Category),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s.requests.Add(1)
			return next(c)
		}
	})

	e.GET("/api/categories", s.getCategories)
	e.POST("/api/categories", s.createCategory)
	e.DELETE("/api/categories/:id", s.deleteCategory)
	e.GET("/api/tasks", s.getTasks)
	e.POST("/api/tasks", s.createTask)
	e.PUT("/api/tasks/batch", s.batchUpdate)
	e.DELETE("/api/tasks/batch", s.batchDelete)
	e.PUT("/api/tasks/reorder", s.reorder)
	e.PUT("/api/tasks/:id", s.updateTask)
	e.DELETE("/api/tasks/:id", s.deleteTask)
	e.GET("/api/stats", s.getStats)

	s.httpSrv = httptest.NewServer(e)
	return s
}

// URL is the base URL clients should point at.
func (s *Server) URL() string { return s.httpSrv.URL }

// Close shuts the server down.
func (s *Server) Close() { s.httpSrv.Close() }

// Requests reports how many HTTP requests the server has received.
func (s *Server) Requests() int64 { return s.requests.Load() }

// Tasks returns a copy of the stored tasks in serving order.
func (s *Server) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked(nil)
}

func decodeBody(c echo.Context, out any) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	return sonic.ConfigStd.Unmarshal(data, out)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func (s *Server) getCategories(c echo.Context) error {
	s.mu.Lock()
	out := make([]domain.Category, 0, len(s.categories))
	for _, cat := range s.categories {
		out = append(out, cat)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return c.JSON(http.StatusOK, out)
}

func (s *Server) createCategory(c echo.Context) error {
	var draft domain.CategoryDraft
	if err := decodeBody(c, &draft); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(draft.Name) == "" {
		return errorJSON(c, http.StatusBadRequest, "category name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cat := range s.categories {
		if cat.Name == draft.Name {
			return errorJSON(c, http.StatusBadRequest, "category name already exists")
		}
	}
	s.nextCat++
	cat := domain.Category{ID: s.nextCat, Name: strings.TrimSpace(draft.Name), Color: draft.Color}
	if cat.Color == "" {
		cat.Color = "#007bff"
	}
	s.categories[cat.ID] = cat
	return c.JSON(http.StatusCreated, cat)
}

func (s *Server) deleteCategory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid category id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return errorJSON(c, http.StatusNotFound, "category not found")
	}
	delete(s.categories, id)
	for _, rec := range s.tasks {
		if rec.task.CategoryID != nil && *rec.task.CategoryID == id {
			rec.task.CategoryID = nil
			rec.task.Category = nil
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "category deleted"})
}

func (s *Server) getTasks(c echo.Context) error {
	search := strings.ToLower(strings.TrimSpace(c.QueryParam("search")))
	completed := c.QueryParam("completed")
	categoryID := c.QueryParam("category_id")
	priority := c.QueryParam("priority")

	match := func(t domain.Task) bool {
		if search != "" && !strings.Contains(strings.ToLower(t.Content), search) {
			return false
		}
		if completed != "" && t.Completed != (strings.EqualFold(completed, "true")) {
			return false
		}
		if categoryID == "none" {
			if t.CategoryID != nil {
				return false
			}
		} else if categoryID != "" {
			id, err := strconv.ParseInt(categoryID, 10, 64)
			if err != nil || t.CategoryID == nil || *t.CategoryID != id {
				return false
			}
		}
		if priority != "" && string(t.Priority) != priority {
			return false
		}
		return true
	}

	s.mu.Lock()
	out := s.sortedLocked(match)
	s.mu.Unlock()
	return c.JSON(http.StatusOK, out)
}

// sortedLocked returns matching tasks ordered by order ascending, then
// newest first. Caller holds s.mu.
func (s *Server) sortedLocked(match func(domain.Task) bool) []domain.Task {
	recs := make([]*taskRec, 0, len(s.tasks))
	for _, rec := range s.tasks {
		if match == nil || match(rec.task) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].task.Order != recs[j].task.Order {
			return recs[i].task.Order < recs[j].task.Order
		}
		return recs[i].createdSeq > recs[j].createdSeq
	})
	out := make([]domain.Task, len(recs))
	for i, rec := range recs {
		out[i] = s.withCategoryLocked(rec.task)
	}
	return out
}

func (s *Server) withCategoryLocked(t domain.Task) domain.Task {
	if t.CategoryID != nil {
		if cat, ok := s.categories[*t.CategoryID]; ok {
			t.Category = &cat
		}
	}
	return t
}

func (s *Server) createTask(c echo.Context) error {
	var draft domain.TaskDraft
	if err := decodeBody(c, &draft); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(draft.Content) == "" {
		return errorJSON(c, http.StatusBadRequest, "task content must not be empty")
	}
	if draft.StartDate != nil && draft.DueDate != nil && draft.StartDate.After(draft.DueDate.Time) {
		return errorJSON(c, http.StatusBadRequest, "start date must not be after due date")
	}
	priority := draft.Priority
	if !priority.Valid() {
		priority = domain.PriorityMedium
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	maxOrder := 0
	for _, rec := range s.tasks {
		if rec.task.Order > maxOrder {
			maxOrder = rec.task.Order
		}
	}
	s.nextTask++
	s.createdSeq++
	task := domain.Task{
		ID:         s.nextTask,
		Content:    strings.TrimSpace(draft.Content),
		Priority:   priority,
		StartDate:  draft.StartDate,
		DueDate:    draft.DueDate,
		CategoryID: draft.CategoryID,
		Order:      maxOrder + 1,
	}
	s.tasks[task.ID] = &taskRec{task: task, createdSeq: s.createdSeq}
	return c.JSON(http.StatusCreated, s.withCategoryLocked(task))
}

func (s *Server) updateTask(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid task id")
	}
	var fields map[string]any
	if err := decodeBody(c, &fields); err != nil || len(fields) == 0 {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tasks[id]
	if !ok {
		return errorJSON(c, http.StatusNotFound, "task not found")
	}
	task := rec.task

	if v, ok := fields["content"]; ok {
		content, _ := v.(string)
		if strings.TrimSpace(content) == "" {
			return errorJSON(c, http.StatusBadRequest, "task content must not be empty")
		}
		task.Content = strings.TrimSpace(content)
	}
	if v, ok := fields["completed"]; ok {
		completed, _ := v.(bool)
		task.Completed = completed
	}
	if v, ok := fields["priority"]; ok {
		str, _ := v.(string)
		task.Priority = domain.ParsePriority(str)
	}
	if v, ok := fields["order"]; ok {
		if f, ok := v.(float64); ok {
			task.Order = int(f)
		}
	}
	if v, ok := fields["start_date"]; ok {
		date, bad := parseDateField(v)
		if bad {
			return errorJSON(c, http.StatusBadRequest, "invalid start date")
		}
		task.StartDate = date
	}
	if v, ok := fields["due_date"]; ok {
		date, bad := parseDateField(v)
		if bad {
			return errorJSON(c, http.StatusBadRequest, "invalid due date")
		}
		task.DueDate = date
	}
	if v, ok := fields["category_id"]; ok {
		switch id := v.(type) {
		case nil:
			task.CategoryID = nil
		case float64:
			cid := int64(id)
			task.CategoryID = &cid
		}
	}
	if task.StartDate != nil && task.DueDate != nil && task.StartDate.After(task.DueDate.Time) {
		return errorJSON(c, http.StatusBadRequest, "start date must not be after due date")
	}

	rec.task = task
	return c.JSON(http.StatusOK, s.withCategoryLocked(task))
}

func parseDateField(v any) (*domain.Date, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case string:
		parsed, err := domain.ParseDate(val)
		if err != nil {
			return nil, true
		}
		return &parsed, false
	default:
		return nil, true
	}
}

func (s *Server) deleteTask(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid task id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return errorJSON(c, http.StatusNotFound, "task not found")
	}
	delete(s.tasks, id)
	return c.JSON(http.StatusOK, map[string]string{"message": "task deleted"})
}

type batchRequest struct {
	TaskIDs   []int64 `json:"task_ids"`
	Completed *bool   `json:"completed"`
}

// batchUpdate applies completed to every listed task. Missing ids are
// skipped; the response reports how many rows were touched.
func (s *Server) batchUpdate(c echo.Context) error {
	var req batchRequest
	if err := decodeBody(c, &req); err != nil || len(req.TaskIDs) == 0 {
		return errorJSON(c, http.StatusBadRequest, "task_ids must not be empty")
	}
	if req.Completed == nil {
		return errorJSON(c, http.StatusBadRequest, "completed must be provided")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for _, id := range req.TaskIDs {
		if rec, ok := s.tasks[id]; ok {
			rec.task.Completed = *req.Completed
			updated++
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "tasks updated", "updated": updated})
}

func (s *Server) batchDelete(c echo.Context) error {
	var req batchRequest
	if err := decodeBody(c, &req); err != nil || len(req.TaskIDs) == 0 {
		return errorJSON(c, http.StatusBadRequest, "task_ids must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for _, id := range req.TaskIDs {
		if _, ok := s.tasks[id]; ok {
			delete(s.tasks, id)
			deleted++
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "tasks deleted", "deleted": deleted})
}

type reorderRequest struct {
	TaskOrders []struct {
		ID    int64 `json:"id"`
		Order int   `json:"order"`
	} `json:"task_orders"`
}

func (s *Server) reorder(c echo.Context) error {
	var req reorderRequest
	if err := decodeBody(c, &req); err != nil || len(req.TaskOrders) == 0 {
		return errorJSON(c, http.StatusBadRequest, "task_orders must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range req.TaskOrders {
		if rec, ok := s.tasks[item.ID]; ok {
			rec.task.Order = item.Order
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "order updated"})
}

func (s *Server) getStats(c echo.Context) error {
	s.mu.Lock()
	total := len(s.tasks)
	completed := 0
	for _, rec := range s.tasks {
		if rec.task.Completed {
			completed++
		}
	}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, domain.Stats{
		TotalTasks:     total,
		CompletedTasks: completed,
		PendingTasks:   total - completed,
		CompletionRate: domain.CompletionRate(completed, total),
	})
}
