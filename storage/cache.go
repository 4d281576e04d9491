package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"kanban-api/domain"
)

// Cache wraps a Store with Redis-backed caching of unfiltered board task
// listings. Mutations evict the touched board's entry, so viewers refetching
// after a broadcast always observe the committed ordering.
type Cache struct {
	*Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base *Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Store: base, redis: client, ttl: ttl}
}

func (c *Cache) ListBoardTasks(ctx context.Context, boardID string, filter domain.TaskFilter) ([]domain.Task, error) {
	cacheable := filter == domain.TaskFilter{}
	if cacheable {
		if tasks, ok := c.loadFromCache(ctx, boardID); ok {
			return tasks, nil
		}
	}

	tasks, err := c.Store.ListBoardTasks(ctx, boardID, filter)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.store(ctx, boardID, tasks)
	}
	return tasks, nil
}

func (c *Cache) CreateTask(ctx context.Context, t *domain.Task) error {
	if err := c.Store.CreateTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, t.Board)
	return nil
}

func (c *Cache) MoveTask(ctx context.Context, id string, target domain.Status, position int) (*domain.Task, error) {
	t, err := c.Store.MoveTask(ctx, id, target, position)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, t.Board)
	return t, nil
}

func (c *Cache) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	t, err := c.Store.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, t.Board)
	return t, nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) (*domain.Task, error) {
	t, err := c.Store.DeleteTask(ctx, id)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, t.Board)
	return t, nil
}

func (c *Cache) DeleteBoard(ctx context.Context, id string) error {
	if err := c.Store.DeleteBoard(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *Cache) loadFromCache(ctx context.Context, boardID string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, boardTasksKey(boardID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, boardTasksKey(boardID)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, boardTasksKey(boardID)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, boardID string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, boardTasksKey(boardID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, boardID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, boardTasksKey(boardID)).Result()
}

func boardTasksKey(boardID string) string {
	return "board-tasks:" + boardID
}
