package config

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client and a lock client for cfg. It pings once with a short
// timeout; callers treat an error as "Redis unavailable" and fall back to local behavior.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, *redislock.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 100,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	GetLogger().WithField("addr", cfg.Address).Info("connected to redis")
	return rdb, redislock.New(rdb), nil
}
