// Package redis caches per-error-type action success counters so action
// ranking doesn't hit the durable store on every recover call.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/healer/internal/core/domain"
)

// Client wraps Redis operations for the recovery ranking cache.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client and verifies the connection.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func countersKey(errType domain.ErrorType) string {
	return fmt.Sprintf("healer:action_success:%s", errType)
}

// RecordActionSuccess increments the success counter for (errType, action).
func (c *Client) RecordActionSuccess(
	ctx context.Context,
	errType domain.ErrorType,
	action domain.RecoveryActionType,
) error {
	if err := c.rdb.HIncrBy(ctx, countersKey(errType), string(action), 1).Err(); err != nil {
		return fmt.Errorf("hincrby failed: %w", err)
	}
	return nil
}

// ActionSuccessCounts returns the cached counters for an error type.
// A missing key yields an empty map, not an error.
func (c *Client) ActionSuccessCounts(
	ctx context.Context,
	errType domain.ErrorType,
) (map[domain.RecoveryActionType]int, error) {
	raw, err := c.rdb.HGetAll(ctx, countersKey(errType)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall failed: %w", err)
	}

	counts := make(map[domain.RecoveryActionType]int, len(raw))
	for action, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue // skip corrupt entries
		}
		counts[domain.RecoveryActionType(action)] = n
	}
	return counts, nil
}
