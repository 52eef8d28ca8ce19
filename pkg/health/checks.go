package health

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
)

// DatabaseChecker probes postgres connectivity.
type DatabaseChecker struct {
	db *sqlx.DB
}

// NewDatabaseChecker creates a database checker.
func NewDatabaseChecker(db *sqlx.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (c *DatabaseChecker) Name() string { return "database" }

func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return resultFor("database", start, c.db.PingContext(ctx))
}

// RedisChecker probes redis connectivity.
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a redis checker.
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return resultFor("redis", start, c.client.Ping(ctx).Err())
}

// QueueChecker probes the message broker through a liveness callback, so
// the health package stays independent of the AMQP client.
type QueueChecker struct {
	alive func() bool
}

// NewQueueChecker creates a broker checker from a liveness callback.
func NewQueueChecker(alive func() bool) *QueueChecker {
	return &QueueChecker{alive: alive}
}

func (c *QueueChecker) Name() string { return "queue" }

func (c *QueueChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if !c.alive() {
		return resultFor("queue", start, errors.New("broker connection closed"))
	}
	return resultFor("queue", start, nil)
}
