package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/infrastructure/config"
)

// statusTTL bounds staleness of cached snapshots; status reads fall back
// to the database when the entry is gone.
const statusTTL = time.Hour

// NewRedisClient creates a redis client from config and verifies connectivity.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// JobStatusCache keeps job status snapshots in redis so polling clients
// do not hammer the database. The cache is an optimization only; every
// operation degrades to a no-op with a warning when redis misbehaves.
type JobStatusCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewJobStatusCache creates a new job status cache
func NewJobStatusCache(client *redis.Client, logger *zap.Logger) *JobStatusCache {
	return &JobStatusCache{
		client: client,
		logger: logger,
	}
}

func statusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

// Set stores a job's status snapshot.
func (c *JobStatusCache) Set(ctx context.Context, snapshot *entities.JobStatusSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.Warn("failed to marshal job status snapshot",
			zap.Error(err),
			zap.String("job_id", snapshot.ID.String()),
		)
		return
	}

	if err := c.client.Set(ctx, statusKey(snapshot.ID), data, statusTTL).Err(); err != nil {
		c.logger.Warn("failed to cache job status",
			zap.Error(err),
			zap.String("job_id", snapshot.ID.String()),
		)
	}
}

// Get returns the cached snapshot, or nil on a miss or any redis error.
func (c *JobStatusCache) Get(ctx context.Context, jobID uuid.UUID) *entities.JobStatusSnapshot {
	data, err := c.client.Get(ctx, statusKey(jobID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("failed to read cached job status",
				zap.Error(err),
				zap.String("job_id", jobID.String()),
			)
		}
		return nil
	}

	var snapshot entities.JobStatusSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		c.logger.Warn("corrupt cached job status, dropping entry",
			zap.Error(err),
			zap.String("job_id", jobID.String()),
		)
		c.Invalidate(ctx, jobID)
		return nil
	}

	return &snapshot
}

// Invalidate drops a job's cached snapshot.
func (c *JobStatusCache) Invalidate(ctx context.Context, jobID uuid.UUID) {
	if err := c.client.Del(ctx, statusKey(jobID)).Err(); err != nil {
		c.logger.Warn("failed to invalidate cached job status",
			zap.Error(err),
			zap.String("job_id", jobID.String()),
		)
	}
}
