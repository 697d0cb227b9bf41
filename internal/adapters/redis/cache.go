package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// SetHoldLock takes a short-lived per-seat lock. It is a cheap pre-filter
// in front of the store-level conditional update, not the source of truth.
func (c *Cache) SetHoldLock(ctx context.Context, showID, seat, userID string, ttl time.Duration) (bool, error) {
	key := "hold:" + showID + ":" + seat
	res := c.client.SetNX(ctx, key, userID, ttl)
	return res.Val(), res.Err()
}

func (c *Cache) ReleaseHoldLock(ctx context.Context, showID, seat string) error {
	return c.client.Del(ctx, "hold:"+showID+":"+seat).Err()
}
