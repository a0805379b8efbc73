package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/newsbrief/internal/model"
)

const redisPrefix = "newsbrief:"

// RedisStore keeps artifacts as JSON strings with no expiry. Metadata
// lives in a hash next to the payload.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects using a redis:// URL and pings the server
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get fetches the artifact for key
func (s *RedisStore) Get(ctx context.Context, key string) (*model.Artifact, bool, error) {
	data, err := s.client.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var a model.Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, false, fmt.Errorf("unmarshal artifact: %w", err)
	}
	return &a, true, nil
}

// Put stores the payload and its metadata in one transaction
func (s *RedisStore) Put(ctx context.Context, key string, a *model.Artifact, meta Meta) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisPrefix+key, data, 0)
		pipe.HSet(ctx, redisPrefix+"meta:"+key,
			"model_id", meta.ModelID,
			"item_count", meta.ItemCount,
			"schema_version", meta.SchemaVersion,
			"created_at", meta.CreatedAt.Unix(),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// Delete removes the payload and metadata for key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisPrefix+key, redisPrefix+"meta:"+key).Err()
}

// Clear removes every newsbrief key using SCAN
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return iter.Err()
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
