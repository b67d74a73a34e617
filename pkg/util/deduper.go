package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce 第一次处理 handler + eventKey 时返回 true，重复事件返回 false
func (d *Deduper) AcquireOnce(ctx context.Context, handler, eventKey string) bool {
	key := fmt.Sprintf("dedup:%s:%s", handler, eventKey)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		// Redis 不可用时不阻止处理，刷新本身是幂等的
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.String("event_key", eventKey),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("dedup_key", key),
		)
	}

	return ok
}

// Release 处理失败时释放去重锁，让重投递的消息可以再次处理
func (d *Deduper) Release(ctx context.Context, handler, eventKey string) {
	key := fmt.Sprintf("dedup:%s:%s", handler, eventKey)
	if err := d.rdb.Del(ctx, key).Err(); err != nil {
		d.logger.Warn("Failed to release dedup key", zap.String("dedup_key", key), zap.Error(err))
	}
}
