package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"flowboard-api/domain"
)

type backend interface {
	ListBoards(ctx context.Context) ([]domain.Board, error)
	CreateBoard(ctx context.Context, board domain.Board) error
	UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (bool, error)
	DeleteBoard(ctx context.Context, id string) (bool, int, error)
	ListItems(ctx context.Context, boardID string) ([]domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) error
	UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (bool, error)
	DeleteItem(ctx context.Context, id string) (bool, error)
	Reseed(ctx context.Context) (int, int, error)
	Ping(ctx context.Context) error
}

// Cache wraps a Storage with redis-backed caching for the two list reads.
// Every write bumps a generation counter, so entries cached under the old
// generation become unreachable and expire by TTL; there is no need to know
// which board an item write touched. Redis failures fall through to the
// backing store.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

const cacheGenKey = "lists:gen"

// NewCache creates a caching wrapper using the provided redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) ListBoards(ctx context.Context) ([]domain.Board, error) {
	key := c.boardsKey(ctx)
	if key != "" {
		if data, err := c.redis.Get(ctx, key).Bytes(); err == nil {
			var boards []domain.Board
			if err := json.Unmarshal(data, &boards); err == nil {
				return boards, nil
			}
			_ = c.redis.Del(ctx, key).Err()
		}
	}

	boards, err := c.base.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, boards)
	return boards, nil
}

func (c *Cache) ListItems(ctx context.Context, boardID string) ([]domain.Item, error) {
	key := c.itemsKey(ctx, boardID)
	if key != "" {
		if data, err := c.redis.Get(ctx, key).Bytes(); err == nil {
			var items []domain.Item
			if err := json.Unmarshal(data, &items); err == nil {
				return items, nil
			}
			_ = c.redis.Del(ctx, key).Err()
		}
	}

	items, err := c.base.ListItems(ctx, boardID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, items)
	return items, nil
}

func (c *Cache) CreateBoard(ctx context.Context, board domain.Board) error {
	if err := c.base.CreateBoard(ctx, board); err != nil {
		return err
	}
	c.bump(ctx)
	return nil
}

func (c *Cache) UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (bool, error) {
	found, err := c.base.UpdateBoard(ctx, id, patch)
	if err != nil {
		return found, err
	}
	c.bump(ctx)
	return found, nil
}

func (c *Cache) DeleteBoard(ctx context.Context, id string) (bool, int, error) {
	found, removed, err := c.base.DeleteBoard(ctx, id)
	if err != nil {
		return found, removed, err
	}
	c.bump(ctx)
	return found, removed, nil
}

func (c *Cache) CreateItem(ctx context.Context, item domain.Item) error {
	if err := c.base.CreateItem(ctx, item); err != nil {
		return err
	}
	c.bump(ctx)
	return nil
}

func (c *Cache) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (bool, error) {
	found, err := c.base.UpdateItem(ctx, id, patch)
	if err != nil {
		return found, err
	}
	c.bump(ctx)
	return found, nil
}

func (c *Cache) DeleteItem(ctx context.Context, id string) (bool, error) {
	found, err := c.base.DeleteItem(ctx, id)
	if err != nil {
		return found, err
	}
	c.bump(ctx)
	return found, nil
}

func (c *Cache) Reseed(ctx context.Context) (int, int, error) {
	boards, items, err := c.base.Reseed(ctx)
	if err != nil {
		return boards, items, err
	}
	c.bump(ctx)
	return boards, items, nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.base.Ping(ctx)
}

// generation returns the current invalidation generation, or "" when the
// cache should be bypassed.
func (c *Cache) generation(ctx context.Context) string {
	if c.redis == nil || c.ttl == 0 {
		return ""
	}
	gen, err := c.redis.Get(ctx, cacheGenKey).Result()
	if err != nil {
		if err != redis.Nil {
			return ""
		}
		return "0"
	}
	return gen
}

func (c *Cache) bump(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Incr(ctx, cacheGenKey).Err()
}

func (c *Cache) boardsKey(ctx context.Context) string {
	gen := c.generation(ctx)
	if gen == "" {
		return ""
	}
	return "boards:" + gen
}

func (c *Cache) itemsKey(ctx context.Context, boardID string) string {
	gen := c.generation(ctx)
	if gen == "" {
		return ""
	}
	if boardID == "" {
		return "items:" + gen + ":all"
	}
	return "items:" + gen + ":" + boardID
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if key == "" || c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}
