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

// SetBookingLock takes a short-lived lock for one user/schedule pair while a
// submission is in flight, so a double-tap racing two API instances cannot
// insert twice before the unique index would catch it.
func (c *Cache) SetBookingLock(ctx context.Context, userID, scheduleID string, ttl time.Duration) (bool, error) {
	key := "booking:" + userID + ":" + scheduleID
	res := c.client.SetNX(ctx, key, "1", ttl)
	return res.Val(), res.Err()
}

func (c *Cache) ReleaseBookingLock(ctx context.Context, userID, scheduleID string) error {
	return c.client.Del(ctx, "booking:"+userID+":"+scheduleID).Err()
}
