package notifications

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// UnreadCounter caches per-user unread counts so the badge poll does not
// hit postgres on every request. A broken cache degrades to the database,
// never to an error.
type UnreadCounter interface {
	Get(ctx context.Context, userID string) (int64, bool)
	Set(ctx context.Context, userID string, count int64)
	Invalidate(ctx context.Context, userID string)
}

type redisUnreadCounter struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewUnreadCounter(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) UnreadCounter {
	return &redisUnreadCounter{rdb: rdb, ttl: ttl, logger: logger}
}

func unreadKey(userID string) string {
	return "notifications:unread:" + userID
}

func (c *redisUnreadCounter) Get(ctx context.Context, userID string) (int64, bool) {
	value, err := c.rdb.Get(ctx, unreadKey(userID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("unread cache read failed", "user_id", userID, "error", err)
		}
		return 0, false
	}
	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return count, true
}

func (c *redisUnreadCounter) Set(ctx context.Context, userID string, count int64) {
	if err := c.rdb.Set(ctx, unreadKey(userID), count, c.ttl).Err(); err != nil {
		c.logger.Warn("unread cache write failed", "user_id", userID, "error", err)
	}
}

func (c *redisUnreadCounter) Invalidate(ctx context.Context, userID string) {
	if err := c.rdb.Del(ctx, unreadKey(userID)).Err(); err != nil {
		c.logger.Warn("unread cache invalidation failed", "user_id", userID, "error", err)
	}
}
