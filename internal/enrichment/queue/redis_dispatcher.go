package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/langwatch/collector/internal/enrichment/model"
)

const (
	redisConnectTimeout = 10 * time.Second
	redisReadTimeout    = 5 * time.Second
	redisWriteTimeout   = 5 * time.Second
	redisPopTimeout     = 5 * time.Second
)

// RedisDispatcher pushes enrichment jobs onto a Redis list so they survive
// process restarts and can be drained by any number of workers.
type RedisDispatcher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisDispatcher(redisURL string, logger *zap.Logger) (*RedisDispatcher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.DialTimeout = redisConnectTimeout
	opts.ReadTimeout = redisReadTimeout
	opts.WriteTimeout = redisWriteTimeout
	redisClient := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisDispatcher{client: redisClient, logger: logger}, nil
}

func (d *RedisDispatcher) Dispatch(job model.EnrichmentJob) error {
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal enrichment job: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisWriteTimeout)
	defer cancel()
	if err := d.client.LPush(ctx, EnrichmentTopic, jobJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish enrichment job: %w", err)
	}
	return nil
}

// StartConsumer drains the job list until ctx is cancelled. Handler errors
// are logged and the job dropped; a separate recovery mechanism owns
// retries.
func (d *RedisDispatcher) StartConsumer(ctx context.Context, handler func(job model.EnrichmentJob) error) {
	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			result, err := d.client.BRPop(ctx, redisPopTimeout, EnrichmentTopic).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
					continue
				}
				d.logger.Error("Failed to pop enrichment job", zap.Error(err))
				continue
			}
			if len(result) < 2 {
				continue
			}
			var job model.EnrichmentJob
			if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
				d.logger.Error("Failed to unmarshal enrichment job", zap.Error(err))
				continue
			}
			if err := handler(job); err != nil {
				d.logger.Error("Failed to handle enrichment job",
					zap.String("trace_id", job.TraceId),
					zap.Error(err),
				)
			}
		}
	}()
}

func (d *RedisDispatcher) Close() error {
	return d.client.Close()
}
