// Package cache holds the read-through cache in front of the progress view.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/internal/model"
	"github.com/fosware/conecta-toolv1-sub004/pkg/circuitbreaker"
	"github.com/fosware/conecta-toolv1-sub004/pkg/metrics"
)

const (
	keyPrefix = "progress:category:"

	// maxFillTTL 限制读路径回填的存活时间：与并发的失效交错时，旧行最多残留这么久
	maxFillTTL = 30 * time.Second
)

// ProgressCache caches progress view rows by category id.
// Errors mean "treat as miss"; callers fall back to the database.
type ProgressCache interface {
	Get(ctx context.Context, categoryIDs []int) (map[int]model.ProgressRow, error)
	// Set stores rows the caller just computed.
	Set(ctx context.Context, rows []model.ProgressRow) error
	// Fill stores rows read from the view on a miss, with a short TTL.
	Fill(ctx context.Context, rows []model.ProgressRow) error
	Invalidate(ctx context.Context, categoryIDs []int) error
}

func Key(categoryID int) string {
	return keyPrefix + strconv.Itoa(categoryID)
}

type RedisProgressCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	fillTTL time.Duration
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewRedisProgressCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisProgressCache {
	return &RedisProgressCache{
		rdb:     rdb,
		ttl:     ttl,
		fillTTL: fillTTLFor(ttl),
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
}

// WithBreaker 替换默认熔断器（测试用）
func (c *RedisProgressCache) WithBreaker(cb *circuitbreaker.CircuitBreaker) *RedisProgressCache {
	c.breaker = cb
	return c
}

func (c *RedisProgressCache) Get(ctx context.Context, categoryIDs []int) (map[int]model.ProgressRow, error) {
	found := make(map[int]model.ProgressRow, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return found, nil
	}

	keys := make([]string, len(categoryIDs))
	for i, id := range categoryIDs {
		keys[i] = Key(id)
	}

	var values []interface{}
	err := c.breaker.Execute(func() error {
		var err error
		values, err = c.rdb.MGet(ctx, keys...).Result()
		return err
	})
	if err != nil {
		metrics.IncrementCacheLookup("error", len(categoryIDs))
		c.logger.Warn("Progress cache read failed, falling back to database",
			zap.Int("categories", len(categoryIDs)),
			zap.String("breaker", c.breaker.State().String()),
			zap.Error(err),
		)
		return found, err
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var row model.ProgressRow
		if err := json.Unmarshal([]byte(s), &row); err != nil {
			c.logger.Warn("Dropping undecodable cache entry", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		found[categoryIDs[i]] = row
	}

	metrics.IncrementCacheLookup("hit", len(found))
	metrics.IncrementCacheLookup("miss", len(categoryIDs)-len(found))
	return found, nil
}

func fillTTLFor(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > maxFillTTL {
		return maxFillTTL
	}
	return ttl
}

func (c *RedisProgressCache) Set(ctx context.Context, rows []model.ProgressRow) error {
	return c.write(ctx, rows, c.ttl)
}

func (c *RedisProgressCache) Fill(ctx context.Context, rows []model.ProgressRow) error {
	return c.write(ctx, rows, c.fillTTL)
}

func (c *RedisProgressCache) write(ctx context.Context, rows []model.ProgressRow, ttl time.Duration) error {
	if len(rows) == 0 {
		return nil
	}

	err := c.breaker.Execute(func() error {
		pipe := c.rdb.Pipeline()
		for _, row := range rows {
			data, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("failed to encode progress row %d: %w", row.CategoryID, err)
			}
			pipe.Set(ctx, Key(row.CategoryID), data, ttl)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		c.logger.Warn("Progress cache write failed", zap.Int("rows", len(rows)), zap.Error(err))
	}
	return err
}

func (c *RedisProgressCache) Invalidate(ctx context.Context, categoryIDs []int) error {
	if len(categoryIDs) == 0 {
		return nil
	}

	keys := make([]string, len(categoryIDs))
	for i, id := range categoryIDs {
		keys[i] = Key(id)
	}

	err := c.breaker.Execute(func() error {
		return c.rdb.Del(ctx, keys...).Err()
	})
	if err != nil {
		c.logger.Warn("Progress cache invalidation failed", zap.Ints("category_ids", categoryIDs), zap.Error(err))
	}
	return err
}

// NoopProgressCache is used when redis is not configured.
type NoopProgressCache struct{}

func (NoopProgressCache) Get(context.Context, []int) (map[int]model.ProgressRow, error) {
	return map[int]model.ProgressRow{}, nil
}

func (NoopProgressCache) Set(context.Context, []model.ProgressRow) error { return nil }

func (NoopProgressCache) Fill(context.Context, []model.ProgressRow) error { return nil }

func (NoopProgressCache) Invalidate(context.Context, []int) error { return nil }
