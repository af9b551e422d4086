package database

import (
	"context"
	"fmt"
	"time"

	"wingo/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectRedis returns nil without error when REDIS_ADDR is unset; the
// engine then runs without rate limiting and event fan-out.
func ConnectRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		log.Info("⚠️  REDIS_ADDR not set, running without Redis")
		return nil, nil
	}

	log.Info("🔌 Connecting to Redis...", zap.String("addr", cfg.RedisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	log.Info("✅ Connected to Redis")
	return client, nil
}
