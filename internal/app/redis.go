package app

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/aididalam/tasktrack/internal/config"
)

var globalRedisClient *redis.Client

// ConnectRedis dials the broadcast channel. Broadcasting is strictly
// best-effort, so an unreachable Redis only logs a warning: the API
// starts and serves mutations either way, events are simply dropped.
func ConnectRedis() {
	cfg := config.Global().Redis
	if cfg.Addr == "" {
		globalLogger.Warn().Msg("no redis address configured, broadcasting disabled")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		globalLogger.Warn().
			Err(err).
			Str("addr", cfg.Addr).
			Msg("failed to ping redis, events will be dropped until it recovers")
	}

	globalRedisClient = client
	globalLogger.Info().
		Str("addr", cfg.Addr).
		Str("channel", cfg.Channel).
		Msg("connected to redis")
}

func DisconnectRedis() {
	if globalRedisClient == nil {
		return
	}

	err := globalRedisClient.Close()
	if err != nil {
		globalLogger.Warn().
			Err(err).
			Msg("failed to close redis client")
		return
	}
	globalLogger.Info().Msg("disconnected from redis")
}
