package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// Redis is a StatsCache shared between server replicas.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// NewRedisClient connects to addr, which may be host:port or a redis:// URL,
// and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		opt = &redis.Options{
			Addr:         addr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *Redis) Get(ctx context.Context, key Key) (*models.UserStats, bool, error) {
	data, err := r.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get stats from redis: %w", err)
	}

	var stats models.UserStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	return &stats, true, nil
}

func (r *Redis) Set(ctx context.Context, key Key, stats *models.UserStats) error {
	if r.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := r.client.Set(ctx, key.String(), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save stats to redis: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, userID int64) error {
	var keys []string
	iter := r.client.Scan(ctx, 0, userPrefix(userID)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan stats keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate stats: %w", err)
	}
	return nil
}
