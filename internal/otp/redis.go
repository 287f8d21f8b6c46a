package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the ledger with Redis so pending challenges survive a
// process restart. The key TTL tracks the challenge expiry; the ledger
// still checks ExpiresAt itself so the two clocks need not agree exactly.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "otp"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) key(purpose Purpose, email string) string {
	return fmt.Sprintf("%s:%s:%s", s.keyPrefix, purpose, email)
}

func (s *RedisStore) Get(ctx context.Context, purpose Purpose, email string) (*Challenge, error) {
	data, err := s.client.Get(ctx, s.key(purpose, email)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var ch Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	return &ch, nil
}

func (s *RedisStore) Put(ctx context.Context, purpose Purpose, email string, ch *Challenge) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}

	ttl := time.Until(ch.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, s.key(purpose, email), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, purpose Purpose, email string) error {
	if err := s.client.Del(ctx, s.key(purpose, email)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
