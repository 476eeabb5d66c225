package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of Redis hashes. The key is used
// verbatim (document identifiers are globally unique, no prefix needed).
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %v", ErrUnavailable, key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) GetField(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.client.HGet(ctx, key, field).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: hget %s %s: %v", ErrUnavailable, key, field, err)
	}
	return v, true, nil
}

func (s *RedisStore) GetFields(ctx context.Context, key string, fields []string) ([]*string, error) {
	vals, err := s.client.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: hmget %s: %v", ErrUnavailable, key, err)
	}
	out := make([]*string, len(fields))
	for i, v := range vals {
		if v == nil {
			continue
		}
		// go-redis returns hash values as strings
		if sv, ok := v.(string); ok {
			out[i] = &sv
		}
	}
	return out, nil
}

func (s *RedisStore) SetFields(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make(map[string]interface{}, len(fields))
	for f, v := range fields {
		args[f] = v
	}
	if err := s.client.HSet(ctx, key, args).Err(); err != nil {
		return fmt.Errorf("%w: hset %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (s *RedisStore) DeleteKey(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", ErrUnavailable, key, err)
	}
	return nil
}
