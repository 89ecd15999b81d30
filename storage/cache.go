package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskly-api/domain"
)

const tasksCacheKey = "tasks:all"

type backend interface {
	FetchTasks(ctx context.Context) ([]domain.Task, error)
	InsertTask(ctx context.Context, t domain.Task) (domain.Task, error)
	UpdateTaskCategory(ctx context.Context, id, category string) error
	DeleteTask(ctx context.Context, id string) (int64, error)
	FindUserByEmail(ctx context.Context, email string) (map[string]any, error)
	InsertUser(ctx context.Context, user map[string]any) (string, error)
}

// Cache wraps a Storage instance with Redis-backed caching of the task
// list. Mutations evict the cached list; the change observer also calls
// Invalidate so out-of-band writes evict it too.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis
// client and TTL. A nil client or zero TTL disables caching.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) FetchTasks(ctx context.Context) ([]domain.Task, error) {
	if tasks, ok := c.loadFromCache(ctx); ok {
		return tasks, nil
	}

	tasks, err := c.base.FetchTasks(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, tasks)
	return tasks, nil
}

func (c *Cache) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	created, err := c.base.InsertTask(ctx, t)
	if err != nil {
		return domain.Task{}, err
	}
	c.Invalidate(ctx)
	return created, nil
}

func (c *Cache) UpdateTaskCategory(ctx context.Context, id, category string) error {
	if err := c.base.UpdateTaskCategory(ctx, id, category); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) (int64, error) {
	count, err := c.base.DeleteTask(ctx, id)
	if err != nil {
		return count, err
	}
	c.Invalidate(ctx)
	return count, nil
}

func (c *Cache) FindUserByEmail(ctx context.Context, email string) (map[string]any, error) {
	return c.base.FindUserByEmail(ctx, email)
}

func (c *Cache) InsertUser(ctx context.Context, user map[string]any) (string, error) {
	return c.base.InsertUser(ctx, user)
}

// Invalidate drops the cached task list.
func (c *Cache) Invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey).Result()
}

func (c *Cache) loadFromCache(ctx context.Context) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, tasksCacheKey).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey, data, c.ttl).Err()
}
