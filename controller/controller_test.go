package controller

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"taskboard/client"
	"taskboard/domain"
	"taskboard/store"
)

type stubSyncer struct {
	mu sync.Mutex

	fetchTasksFn func(ctx context.Context, filter domain.FilterSpec) ([]domain.Task, error)
	createFn     func(ctx context.Context, draft domain.TaskDraft) (domain.Task, error)
	updateFn     func(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	deleteFn     func(ctx context.Context, id int64) error
	batchCompFn  func(ctx context.Context, ids []int64, completed bool) (client.BatchResult, error)
	batchDelFn   func(ctx context.Context, ids []int64) (client.BatchResult, error)
	reorderFn    func(ctx context.Context, orders []client.OrderUpdate) error
	statsFn      func(ctx context.Context) (domain.Stats, error)

	fetchCalls int
	statsCalls int
}

func (s *stubSyncer) FetchTasks(ctx context.Context, filter domain.FilterSpec) ([]domain.Task, error) {
	s.mu.Lock()
	s.fetchCalls++
	s.mu.Unlock()
	if s.fetchTasksFn == nil {
		return []domain.Task{}, nil
	}
	return s.fetchTasksFn(ctx, filter)
}

func (s *stubSyncer) FetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls
}

func (s *stubSyncer) CreateTask(ctx context.Context, draft domain.TaskDraft) (domain.Task, error) {
	if s.createFn == nil {
		return domain.Task{ID: 1, Content: draft.Content}, nil
	}
	return s.createFn(ctx, draft)
}

func (s *stubSyncer) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	if s.updateFn == nil {
		return domain.Task{ID: id}, nil
	}
	return s.updateFn(ctx, id, patch)
}

func (s *stubSyncer) DeleteTask(ctx context.Context, id int64) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}

func (s *stubSyncer) BatchComplete(ctx context.Context, ids []int64, completed bool) (client.BatchResult, error) {
	if s.batchCompFn == nil {
		return client.BatchResult{Updated: len(ids)}, nil
	}
	return s.batchCompFn(ctx, ids, completed)
}

func (s *stubSyncer) BatchDelete(ctx context.Context, ids []int64) (client.BatchResult, error) {
	if s.batchDelFn == nil {
		return client.BatchResult{Deleted: len(ids)}, nil
	}
	return s.batchDelFn(ctx, ids)
}

func (s *stubSyncer) ReorderTasks(ctx context.Context, orders []client.OrderUpdate) error {
	if s.reorderFn == nil {
		return nil
	}
	return s.reorderFn(ctx, orders)
}

func (s *stubSyncer) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	return []domain.Category{}, nil
}

func (s *stubSyncer) CreateCategory(ctx context.Context, draft domain.CategoryDraft) (domain.Category, error) {
	return domain.Category{ID: 1, Name: draft.Name}, nil
}

func (s *stubSyncer) DeleteCategory(ctx context.Context, id int64) error { return nil }

func (s *stubSyncer) FetchStats(ctx context.Context) (domain.Stats, error) {
	s.mu.Lock()
	s.statsCalls++
	s.mu.Unlock()
	if s.statsFn == nil {
		return domain.Stats{}, nil
	}
	return s.statsFn(ctx)
}

func newTestController(stub *stubSyncer) *Controller {
	logger, _ := test.NewNullLogger()
	return New(stub, store.New(), logger)
}

func TestRefreshStaleResponseDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	stub := &stubSyncer{
		fetchTasksFn: func(ctx context.Context, filter domain.FilterSpec) ([]domain.Task, error) {
			if filter.Search == "old" {
				close(started)
				<-release
				return []domain.Task{{ID: 1, Content: "old result"}}, nil
			}
			return []domain.Task{{ID: 2, Content: "new result"}}, nil
		},
	}
	c := newTestController(stub)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- c.Refresh(context.Background(), domain.FilterSpec{Search: "old"})
	}()
	<-started

	if err := c.Refresh(context.Background(), domain.FilterSpec{Search: "new"}); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	close(release)

	select {
	case err := <-firstDone:
		if !client.IsStale(err) {
			t.Fatalf("expected stale response error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("first refresh never returned")
	}

	tasks := c.Store().Tasks()
	if len(tasks) != 1 || tasks[0].ID != 2 {
		t.Fatalf("rendered list must reflect the newer fetch, got %#v", tasks)
	}
}

func TestSupersededFetchCannotInstallSnapshot(t *testing.T) {
	c := newTestController(&stubSyncer{})

	// Both fetches are in flight; the older one resolves last.
	older := c.issuedSeq.Add(1)
	newer := c.issuedSeq.Add(1)

	if !c.applySnapshot(newer, domain.FilterSpec{}, []domain.Task{{ID: 2, Content: "fresh"}}) {
		t.Fatal("newest fetch must install its snapshot")
	}
	if c.applySnapshot(older, domain.FilterSpec{Search: "old"}, []domain.Task{{ID: 1, Content: "stale"}}) {
		t.Fatal("superseded fetch must not install its snapshot")
	}

	tasks := c.Store().Tasks()
	if len(tasks) != 1 || tasks[0].ID != 2 {
		t.Fatalf("stale snapshot clobbered the fresh one: %#v", tasks)
	}
	if !c.Filter().IsZero() {
		t.Fatalf("filter must reflect the applied fetch, got %+v", c.Filter())
	}
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	boom := &client.ServerError{Status: 500, Message: "backend down"}
	healthy := true
	stub := &stubSyncer{
		fetchTasksFn: func(ctx context.Context, filter domain.FilterSpec) ([]domain.Task, error) {
			if healthy {
				return []domain.Task{{ID: 1, Content: "kept"}}, nil
			}
			return nil, boom
		},
	}
	c := newTestController(stub)

	var notified []error
	c.OnError(func(err error) { notified = append(notified, err) })

	if err := c.Refresh(context.Background(), domain.FilterSpec{}); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	healthy = false
	err := c.Refresh(context.Background(), domain.FilterSpec{})
	if !errors.Is(err, error(boom)) {
		t.Fatalf("expected server error, got %v", err)
	}
	if tasks := c.Store().Tasks(); len(tasks) != 1 || tasks[0].Content != "kept" {
		t.Fatalf("failed refresh must leave the previous snapshot, got %#v", tasks)
	}
	if len(notified) != 1 {
		t.Fatalf("expected 1 user-facing notification, got %d", len(notified))
	}
}

func TestSelectionPrunedOnRefresh(t *testing.T) {
	window := []domain.Task{{ID: 1}, {ID: 2}}
	stub := &stubSyncer{
		fetchTasksFn: func(ctx context.Context, filter domain.FilterSpec) ([]domain.Task, error) {
			return window, nil
		},
	}
	c := newTestController(stub)
	if err := c.Refresh(context.Background(), domain.FilterSpec{}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	c.Selection().SelectAll([]int64{1, 2})

	window = []domain.Task{{ID: 2}}
	if err := c.Refresh(context.Background(), domain.FilterSpec{}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := c.Selection().IDs(); !reflect.DeepEqual(got, []int64{2}) {
		t.Fatalf("selection must be pruned to rendered ids, got %v", got)
	}
}

func TestCreateRefetchesAndRefreshesStats(t *testing.T) {
	stub := &stubSyncer{}
	c := newTestController(stub)

	if err := c.Create(context.Background(), domain.TaskDraft{Content: "Buy fabric"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if stub.FetchCount() != 1 {
		t.Fatalf("expected 1 refetch after create, got %d", stub.FetchCount())
	}
	stub.mu.Lock()
	statsCalls := stub.statsCalls
	stub.mu.Unlock()
	if statsCalls != 1 {
		t.Fatalf("expected stats refresh after create, got %d", statsCalls)
	}
}

func TestCreateValidationErrorNotNotified(t *testing.T) {
	stub := &stubSyncer{
		createFn: func(ctx context.Context, draft domain.TaskDraft) (domain.Task, error) {
			return domain.Task{}, draft.Validate()
		},
	}
	c := newTestController(stub)

	notified := 0
	c.OnError(func(error) { notified++ })

	err := c.Create(context.Background(), domain.TaskDraft{Content: "  "})
	if !client.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if notified != 0 {
		t.Fatal("validation errors surface synchronously, not as notifications")
	}
	if stub.FetchCount() != 0 {
		t.Fatal("a rejected create must not refetch")
	}
}

func TestBatchCompleteClearsSelection(t *testing.T) {
	var gotIDs []int64
	var gotCompleted bool
	stub := &stubSyncer{
		batchCompFn: func(ctx context.Context, ids []int64, completed bool) (client.BatchResult, error) {
			gotIDs = ids
			gotCompleted = completed
			return client.BatchResult{Updated: len(ids)}, nil
		},
	}
	c := newTestController(stub)
	c.Selection().SelectAll([]int64{3, 1})

	if err := c.BatchComplete(context.Background(), true); err != nil {
		t.Fatalf("batch complete: %v", err)
	}
	if !reflect.DeepEqual(gotIDs, []int64{1, 3}) || !gotCompleted {
		t.Fatalf("unexpected batch request: ids=%v completed=%v", gotIDs, gotCompleted)
	}
	if !c.Selection().IsEmpty() {
		t.Fatal("selection must be cleared after a successful batch")
	}
	if stub.FetchCount() != 1 {
		t.Fatalf("expected refetch after batch, got %d", stub.FetchCount())
	}
}

func TestBatchDeleteFailureLeavesSelection(t *testing.T) {
	boom := &client.ServerError{Status: 500}
	stub := &stubSyncer{
		batchDelFn: func(ctx context.Context, ids []int64) (client.BatchResult, error) {
			return client.BatchResult{}, boom
		},
	}
	c := newTestController(stub)
	c.Selection().SelectAll([]int64{1, 2})

	if err := c.BatchDelete(context.Background()); !errors.Is(err, error(boom)) {
		t.Fatalf("expected server error, got %v", err)
	}
	if c.Selection().Count() != 2 {
		t.Fatal("failed batch must leave the selection untouched")
	}
	if stub.FetchCount() != 0 {
		t.Fatal("failed batch must not refetch")
	}
}

func TestDeleteDropsMembership(t *testing.T) {
	stub := &stubSyncer{}
	c := newTestController(stub)
	c.Selection().SelectAll([]int64{1, 2})

	if err := c.Delete(context.Background(), 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if c.Selection().Has(1) {
		t.Fatal("deleted task must leave the selection")
	}
}

func TestMoveTaskSingleUpdate(t *testing.T) {
	var gotID int64
	var gotPatch domain.TaskPatch
	stub := &stubSyncer{
		updateFn: func(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
			gotID = id
			gotPatch = patch
			return domain.Task{ID: id}, nil
		},
	}
	c := newTestController(stub)
	c.Store().Load([]domain.Task{{ID: 1, Order: 10}, {ID: 2, Order: 20}, {ID: 3, Order: 30}})

	if err := c.MoveTask(context.Background(), 3, 1); err != nil {
		t.Fatalf("move: %v", err)
	}
	if gotID != 3 {
		t.Fatalf("expected update for task 3, got %d", gotID)
	}
	if gotPatch.Order == nil || *gotPatch.Order <= 10 || *gotPatch.Order >= 20 {
		t.Fatalf("expected an order between the neighbours, got %+v", gotPatch.Order)
	}
}

func TestMoveTaskRenumberFallback(t *testing.T) {
	var gotOrders []client.OrderUpdate
	stub := &stubSyncer{
		reorderFn: func(ctx context.Context, orders []client.OrderUpdate) error {
			gotOrders = orders
			return nil
		},
	}
	c := newTestController(stub)
	c.Store().Load([]domain.Task{{ID: 1, Order: 1}, {ID: 2, Order: 2}, {ID: 3, Order: 3}})

	if err := c.MoveTask(context.Background(), 3, 1); err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(gotOrders) != 3 {
		t.Fatalf("expected a full renumber, got %v", gotOrders)
	}
}

func TestMoveTaskFailureSnapsBack(t *testing.T) {
	boom := &client.ServerError{Status: 500}
	stub := &stubSyncer{
		updateFn: func(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
			return domain.Task{}, boom
		},
	}
	c := newTestController(stub)
	c.Store().Load([]domain.Task{{ID: 1, Order: 10}, {ID: 2, Order: 20}, {ID: 3, Order: 30}})

	if err := c.MoveTask(context.Background(), 3, 0); !errors.Is(err, error(boom)) {
		t.Fatalf("expected server error, got %v", err)
	}
	if stub.FetchCount() != 1 {
		t.Fatalf("failed move must refetch the authoritative order, got %d fetches", stub.FetchCount())
	}
}

func TestRefreshStatsFallsBackToLocalCompute(t *testing.T) {
	stub := &stubSyncer{
		statsFn: func(ctx context.Context) (domain.Stats, error) {
			return domain.Stats{}, &client.ServerError{Status: 503}
		},
	}
	c := newTestController(stub)
	c.Store().Load([]domain.Task{{ID: 1, Completed: true}, {ID: 2}})

	c.RefreshStats(context.Background())
	stats := c.Stats()
	if stats.TotalTasks != 2 || stats.CompletedTasks != 1 || stats.CompletionRate != 50 {
		t.Fatalf("expected locally recomputed stats, got %+v", stats)
	}
}

func TestOnChangeFiredOnLoad(t *testing.T) {
	stub := &stubSyncer{}
	c := newTestController(stub)

	changes := 0
	c.OnChange(func() { changes++ })

	if err := c.Refresh(context.Background(), domain.FilterSpec{}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if changes == 0 {
		t.Fatal("snapshot replace must request a re-render")
	}
}
