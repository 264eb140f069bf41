// Package redis provides Redis connection management and the two-tier record
// cache used by the read paths.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/keygate/internal/config"
	"github.com/turtacn/keygate/pkg/errors"
	"github.com/turtacn/keygate/pkg/logger"
)

// Connection manages the Redis client lifecycle.
type Connection struct {
	client *redis.Client
	logger logger.Logger
}

// NewConnection establishes a Redis connection and verifies it with a ping.
func NewConnection(ctx context.Context, cfg *config.RedisConfig, log logger.Logger) (*Connection, *errors.AppError) {
	log = log.WithComponent("redis")

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Error(ctx, "redis ping failed", err, logger.String("addr", cfg.Addr))
		return nil, errors.ErrCache.WithError(err)
	}

	log.Info(ctx, "redis connection established",
		logger.String("addr", cfg.Addr),
		logger.Int("db", cfg.DB),
	)
	return &Connection{client: client, logger: log}, nil
}

// Client returns the underlying Redis client.
func (c *Connection) Client() *redis.Client {
	return c.client
}

// Ping checks server connectivity.
func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// HealthCheck reports connectivity and pool statistics.
func (c *Connection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	start := time.Now()
	err := c.client.Ping(ctx).Err()
	latency := time.Since(start)

	health := map[string]interface{}{
		"connected":  err == nil,
		"latency_ms": latency.Milliseconds(),
	}
	if err != nil {
		health["error"] = err.Error()
		return health, err
	}

	stats := c.client.PoolStats()
	health["pool_hits"] = stats.Hits
	health["pool_misses"] = stats.Misses
	health["total_conns"] = stats.TotalConns
	health["idle_conns"] = stats.IdleConns
	return health, nil
}

// Close releases the client and its pool.
func (c *Connection) Close() error {
	c.logger.Info(context.Background(), "closing redis connection")
	return c.client.Close()
}
