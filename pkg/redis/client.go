package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fosware/conecta-toolv1-sub004/pkg/config"
)

var Rdb *redis.Client

// NewRedisClient 创建 Redis 客户端，读写超时保持较短，缓存不可用时调用方回退到数据库
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	Rdb = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	return Rdb
}

// Ping 用于 readyz 检查
func Ping(ctx context.Context, rdb *redis.Client) error {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
