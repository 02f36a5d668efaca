// Package controller owns the task-list session: it funnels every UI
// intent through the sync client, reconciles responses into the entity
// cache, and keeps the selection and statistics consistent with the
// rendered list.
package controller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"taskboard/client"
	"taskboard/domain"
	"taskboard/store"
)

// Syncer is the remote surface the controller drives. Both
// *client.Client and *client.Cache satisfy it.
type Syncer interface {
	FetchTasks(ctx context.Context, filter domain.FilterSpec) ([]domain.Task, error)
	CreateTask(ctx context.Context, draft domain.TaskDraft) (domain.Task, error)
	UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	BatchComplete(ctx context.Context, ids []int64, completed bool) (client.BatchResult, error)
	BatchDelete(ctx context.Context, ids []int64) (client.BatchResult, error)
	ReorderTasks(ctx context.Context, orders []client.OrderUpdate) error
	FetchCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, draft domain.CategoryDraft) (domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	FetchStats(ctx context.Context) (domain.Stats, error)
}

// Controller is constructed at session start and discarded when the
// session ends. All mutation of the entity cache and selection goes
// through its methods.
//
// Consistency model: the server is the sole source of truth. Every
// successful mutation triggers a full refetch instead of patching the
// local snapshot optimistically; the latency cost is accepted in
// exchange for never rendering state the server has not confirmed.
type Controller struct {
	sync  Syncer
	store *store.Store
	sel   *Selection
	log   *log.Logger

	// issuedSeq tags each fetch; a response whose tag is no longer the
	// newest issued is discarded rather than clobbering fresher results.
	// applyMu makes the staleness check and the snapshot install one
	// step, so a superseded fetch cannot pass the check and then install
	// on top of a fresher result.
	issuedSeq atomic.Uint64
	applyMu   sync.Mutex

	mu     sync.Mutex
	filter domain.FilterSpec
	stats  domain.Stats

	cbMu     sync.Mutex
	onChange []func()
	onError  []func(error)
}

func New(syncer Syncer, st *store.Store, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.StandardLogger()
	}
	c := &Controller{
		sync:  syncer,
		store: st,
		sel:   NewSelection(),
		log:   logger,
	}
	st.OnReplace(func() {
		c.sel.Prune(st.TaskIDs())
		c.notifyChange()
	})
	return c
}

// Store exposes the entity cache for rendering.
func (c *Controller) Store() *store.Store { return c.store }

// Selection exposes the selection tracker.
func (c *Controller) Selection() *Selection { return c.sel }

// Stats returns the last refreshed statistics.
func (c *Controller) Stats() domain.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Filter returns the filter spec of the most recent applied fetch.
func (c *Controller) Filter() domain.FilterSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// OnChange registers a re-render callback, invoked after every snapshot
// replace and statistics refresh.
func (c *Controller) OnChange(fn func()) {
	if fn == nil {
		return
	}
	c.cbMu.Lock()
	c.onChange = append(c.onChange, fn)
	c.cbMu.Unlock()
}

// OnError registers a user-facing notification callback. Validation
// errors surface synchronously to the caller instead, and stale
// responses are never reported.
func (c *Controller) OnError(fn func(error)) {
	if fn == nil {
		return
	}
	c.cbMu.Lock()
	c.onError = append(c.onError, fn)
	c.cbMu.Unlock()
}

func (c *Controller) notifyChange() {
	c.cbMu.Lock()
	cbs := append(make([]func(), 0, len(c.onChange)), c.onChange...)
	c.cbMu.Unlock()
	for _, fn := range cbs {
		fn()
	}
}

func (c *Controller) notifyError(err error) {
	if err == nil || client.IsStale(err) || client.IsValidation(err) {
		return
	}
	c.cbMu.Lock()
	cbs := append(make([]func(error), 0, len(c.onError)), c.onError...)
	c.cbMu.Unlock()
	for _, fn := range cbs {
		fn(err)
	}
}

// Refresh fetches the task list for the given filter and replaces the
// snapshot. A fetch superseded by a newer one before its response lands
// is discarded and reported as client.ErrStaleResponse; on any other
// failure the cache keeps its previous snapshot.
func (c *Controller) Refresh(ctx context.Context, filter domain.FilterSpec) error {
	seq := c.issuedSeq.Add(1)

	tasks, err := c.sync.FetchTasks(ctx, filter)
	if seq != c.issuedSeq.Load() {
		return client.ErrStaleResponse
	}
	if err != nil {
		c.log.WithFields(log.Fields{"op": "refresh", "error": err.Error()}).Warn("task refresh failed")
		c.notifyError(err)
		return err
	}

	if !c.applySnapshot(seq, filter, tasks) {
		return client.ErrStaleResponse
	}
	return nil
}

// applySnapshot installs a fetched snapshot if seq is still the newest
// issued fetch. The check and the install happen under one lock: a fetch
// superseded after its unlocked check cannot slip in behind a fresher
// install.
func (c *Controller) applySnapshot(seq uint64, filter domain.FilterSpec, tasks []domain.Task) bool {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	if seq != c.issuedSeq.Load() {
		return false
	}
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()
	c.store.Load(tasks)
	return true
}

// RefreshCategories fetches categories and replaces the snapshot.
func (c *Controller) RefreshCategories(ctx context.Context) error {
	categories, err := c.sync.FetchCategories(ctx)
	if err != nil {
		c.notifyError(err)
		return err
	}
	c.store.LoadCategories(categories)
	c.notifyChange()
	return nil
}

// refetch re-derives the rendered state and statistics after a
// confirmed mutation.
func (c *Controller) refetch(ctx context.Context) {
	if err := c.Refresh(ctx, c.Filter()); err != nil && !client.IsStale(err) {
		c.log.WithField("error", err.Error()).Warn("post-mutation refetch failed")
	}
	c.RefreshStats(ctx)
}

// Create validates and creates a task, then refetches so server-assigned
// defaults (id, order, priority) come from the source of truth rather
// than a trusted echo.
func (c *Controller) Create(ctx context.Context, draft domain.TaskDraft) error {
	if _, err := c.sync.CreateTask(ctx, draft); err != nil {
		c.notifyError(err)
		return err
	}
	c.refetch(ctx)
	return nil
}

// Update sends the changed fields for one task and refetches on success.
func (c *Controller) Update(ctx context.Context, id int64, patch domain.TaskPatch) error {
	if _, err := c.sync.UpdateTask(ctx, id, patch); err != nil {
		c.notifyError(err)
		return err
	}
	c.refetch(ctx)
	return nil
}

// SetCompleted flips one task's completion state.
func (c *Controller) SetCompleted(ctx context.Context, id int64, completed bool) error {
	return c.Update(ctx, id, domain.TaskPatch{Completed: &completed})
}

// Delete removes one task. Its selection membership is dropped
// immediately; the refetch prunes anything else.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	if err := c.sync.DeleteTask(ctx, id); err != nil {
		c.notifyError(err)
		return err
	}
	c.sel.Remove(id)
	c.refetch(ctx)
	return nil
}

// BatchComplete applies completed to every selected task as one
// operation: one reported success or failure, no partial reconciliation.
// The backend skips ids that no longer exist; a 2xx response is still a
// success and the refetch reconciles the view.
func (c *Controller) BatchComplete(ctx context.Context, completed bool) error {
	ids := c.sel.IDs()
	if _, err := c.sync.BatchComplete(ctx, ids, completed); err != nil {
		c.notifyError(err)
		return err
	}
	c.sel.Clear()
	c.refetch(ctx)
	return nil
}

// BatchDelete removes every selected task as one operation.
func (c *Controller) BatchDelete(ctx context.Context) error {
	ids := c.sel.IDs()
	if _, err := c.sync.BatchDelete(ctx, ids); err != nil {
		c.notifyError(err)
		return err
	}
	c.sel.Clear()
	c.refetch(ctx)
	return nil
}

// MoveTask persists the order change for one drop gesture. The primary
// path updates only the moved task; when the neighbours leave no integer
// gap the whole list is renumbered instead. On failure the list is
// refetched so the view snaps back to the server-authoritative order.
// On success statistics are untouched, reordering never changes
// completion counts.
func (c *Controller) MoveTask(ctx context.Context, taskID int64, newIndex int) error {
	plan, err := planMove(c.store.Tasks(), taskID, newIndex, c.Filter().IsZero())
	if err != nil {
		return err
	}
	if plan.noop {
		return nil
	}

	if len(plan.renumber) > 0 {
		err = c.sync.ReorderTasks(ctx, plan.renumber)
	} else {
		order := plan.order
		_, err = c.sync.UpdateTask(ctx, taskID, domain.TaskPatch{Order: &order})
	}
	if err != nil {
		c.notifyError(err)
		if refreshErr := c.Refresh(ctx, c.Filter()); refreshErr != nil && !client.IsStale(refreshErr) {
			c.log.WithField("error", refreshErr.Error()).Warn("snap-back refresh failed")
		}
		return err
	}

	if err := c.Refresh(ctx, c.Filter()); err != nil && !client.IsStale(err) {
		return err
	}
	return nil
}

// RefreshStats refreshes the aggregate counts from the stats endpoint,
// recomputing locally from the snapshot when the endpoint fails.
func (c *Controller) RefreshStats(ctx context.Context) {
	stats, err := c.sync.FetchStats(ctx)
	if err != nil {
		c.log.WithField("error", err.Error()).Debug("stats endpoint failed, recomputing locally")
		stats = domain.ComputeStats(c.store.Tasks())
	}
	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
	c.notifyChange()
}

// CreateCategory validates and creates a category, then refreshes the
// category snapshot.
func (c *Controller) CreateCategory(ctx context.Context, draft domain.CategoryDraft) error {
	if _, err := c.sync.CreateCategory(ctx, draft); err != nil {
		c.notifyError(err)
		return err
	}
	return c.RefreshCategories(ctx)
}

// DeleteCategory removes a category and refreshes both snapshots, since
// the backend nulls out the references of affected tasks.
func (c *Controller) DeleteCategory(ctx context.Context, id int64) error {
	if err := c.sync.DeleteCategory(ctx, id); err != nil {
		c.notifyError(err)
		return err
	}
	if err := c.RefreshCategories(ctx); err != nil {
		return err
	}
	if err := c.Refresh(ctx, c.Filter()); err != nil && !errors.Is(err, client.ErrStaleResponse) {
		return err
	}
	return nil
}
