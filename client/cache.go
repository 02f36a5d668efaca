package client

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"taskboard/domain"
)

type backend interface {
	FetchTasks(ctx context.Context, filter domain.FilterSpec) ([]domain.Task, error)
	CreateTask(ctx context.Context, draft domain.TaskDraft) (domain.Task, error)
	UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	BatchComplete(ctx context.Context, ids []int64, completed bool) (BatchResult, error)
	BatchDelete(ctx context.Context, ids []int64) (BatchResult, error)
	ReorderTasks(ctx context.Context, orders []OrderUpdate) error
	FetchCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, draft domain.CategoryDraft) (domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	FetchStats(ctx context.Context) (domain.Stats, error)
}

// Cache wraps a Client with Redis-backed caching for read operations.
// Every mutation evicts all cached reads, so a fetch after a write always
// reaches the backend. Redis errors degrade to the backend without
// failing the operation.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

const (
	categoriesCacheKey = "categories"
	statsCacheKey      = "stats"
	taskKeySetKey      = "tasks:keys"
)

// NewCache creates a caching wrapper using the provided Redis client and
// TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("client.NewCache: base client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func tasksCacheKey(filter domain.FilterSpec) string {
	return "tasks:" + filter.Key()
}

func (c *Cache) FetchTasks(ctx context.Context, filter domain.FilterSpec) ([]domain.Task, error) {
	key := tasksCacheKey(filter)
	var tasks []domain.Task
	if c.loadCached(ctx, key, &tasks) {
		return tasks, nil
	}

	tasks, err := c.base.FetchTasks(ctx, filter)
	if err != nil {
		return nil, err
	}

	if c.storeCached(ctx, key, tasks) {
		_ = c.redis.SAdd(ctx, taskKeySetKey, key).Err()
	}
	return tasks, nil
}

func (c *Cache) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if c.loadCached(ctx, categoriesCacheKey, &categories) {
		return categories, nil
	}

	categories, err := c.base.FetchCategories(ctx)
	if err != nil {
		return nil, err
	}

	c.storeCached(ctx, categoriesCacheKey, categories)
	return categories, nil
}

func (c *Cache) FetchStats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	if c.loadCached(ctx, statsCacheKey, &stats) {
		return stats, nil
	}

	stats, err := c.base.FetchStats(ctx)
	if err != nil {
		return domain.Stats{}, err
	}

	c.storeCached(ctx, statsCacheKey, stats)
	return stats, nil
}

func (c *Cache) CreateTask(ctx context.Context, draft domain.TaskDraft) (domain.Task, error) {
	created, err := c.base.CreateTask(ctx, draft)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return created, nil
}

func (c *Cache) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	updated, err := c.base.UpdateTask(ctx, id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return updated, nil
}

func (c *Cache) DeleteTask(ctx context.Context, id int64) error {
	if err := c.base.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) BatchComplete(ctx context.Context, ids []int64, completed bool) (BatchResult, error) {
	res, err := c.base.BatchComplete(ctx, ids, completed)
	if err != nil {
		return BatchResult{}, err
	}
	c.evict(ctx)
	return res, nil
}

func (c *Cache) BatchDelete(ctx context.Context, ids []int64) (BatchResult, error) {
	res, err := c.base.BatchDelete(ctx, ids)
	if err != nil {
		return BatchResult{}, err
	}
	c.evict(ctx)
	return res, nil
}

func (c *Cache) ReorderTasks(ctx context.Context, orders []OrderUpdate) error {
	if err := c.base.ReorderTasks(ctx, orders); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) CreateCategory(ctx context.Context, draft domain.CategoryDraft) (domain.Category, error) {
	created, err := c.base.CreateCategory(ctx, draft)
	if err != nil {
		return domain.Category{}, err
	}
	c.evict(ctx)
	return created, nil
}

func (c *Cache) DeleteCategory(ctx context.Context, id int64) error {
	if err := c.base.DeleteCategory(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) loadCached(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.ConfigStd.Unmarshal(data, out); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) storeCached(ctx context.Context, key string, value any) bool {
	if c.redis == nil || c.ttl == 0 {
		return false
	}
	data, err := sonic.ConfigStd.Marshal(value)
	if err != nil {
		return false
	}
	return c.redis.Set(ctx, key, data, c.ttl).Err() == nil
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	keys, err := c.redis.SMembers(ctx, taskKeySetKey).Result()
	if err == nil && len(keys) > 0 {
		_ = c.redis.Del(ctx, keys...).Err()
	}
	_, _ = c.redis.Del(ctx, taskKeySetKey, categoriesCacheKey, statsCacheKey).Result()
}
