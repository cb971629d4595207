package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by github.com/redis/go-redis/v9, for
// deployments that share a response cache across multiple gateway
// processes. Keys are namespaced separately for the non-streaming and
// streaming entry shapes so a TTL applied to one never silently expires
// the other, following the redisKey-prefixing convention in
// BaSui01-agentflow's llm/cache.MultiLevelCache.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a RedisStore. A ttl of zero means entries never
// expire (Redis treats a zero expiration as "no expiry").
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) GetNonStreaming(ctx context.Context, key string) (*NonStreamingEntry, bool, error) {
	data, err := s.client.Get(ctx, nonStreamingKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entry NonStreamingEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

func (s *RedisStore) PutNonStreaming(ctx context.Context, key string, entry *NonStreamingEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, nonStreamingKey(key), data, s.ttl).Err()
}

func (s *RedisStore) GetStreaming(ctx context.Context, key string) (*StreamingEntry, bool, error) {
	data, err := s.client.Get(ctx, streamingKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entry StreamingEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

func (s *RedisStore) PutStreaming(ctx context.Context, key string, entry *StreamingEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, streamingKey(key), data, s.ttl).Err()
}

func nonStreamingKey(key string) string { return key + ":complete" }
func streamingKey(key string) string    { return key + ":stream" }

var _ Store = (*RedisStore)(nil)
