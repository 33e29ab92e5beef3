package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"daymark/api/internal/habits"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each user's blob under "user:<id>:data", without TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client), nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(userID string) string {
	return "user:" + userID + ":data"
}

func (s *RedisStore) Read(ctx context.Context, userID string) (*habits.Data, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user data: %w", err)
	}

	var data habits.Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("unmarshal user data: %w", err)
	}
	return &data, nil
}

func (s *RedisStore) Write(ctx context.Context, userID string, data habits.Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal user data: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), payload, 0).Err(); err != nil {
		return fmt.Errorf("write user data: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
