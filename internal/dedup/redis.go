package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantfeed/signal-scout/internal/config"
	redis "github.com/redis/go-redis/v9"
)

// RedisStore keeps fingerprints in a Redis hash, one field per
// (channel, message) pair. Useful when the pipeline runs on a host without
// durable local disk.
type RedisStore struct {
	client *redis.Client
	key    string
}

type redisFingerprint struct {
	Outcome     string    `json:"outcome"`
	ProcessedAt time.Time `json:"processed_at"`
}

// NewRedisStore creates a Redis-backed fingerprint store.
func NewRedisStore(cfg config.DedupConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &RedisStore{client: client, key: cfg.RedisKey}
}

func fieldKey(channelID, messageID string) string {
	return channelID + ":" + messageID
}

// Seen reports whether a fingerprint field exists for the pair.
func (s *RedisStore) Seen(ctx context.Context, channelID, messageID string) (bool, error) {
	ok, err := s.client.HExists(ctx, s.key, fieldKey(channelID, messageID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis HEXISTS %s: %w", s.key, err)
	}
	return ok, nil
}

// MarkSeen records the fingerprint. HSETNX keeps the first outcome if the
// pair is marked twice.
func (s *RedisStore) MarkSeen(ctx context.Context, channelID, messageID, outcome string) error {
	value, err := json.Marshal(redisFingerprint{Outcome: outcome, ProcessedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal fingerprint: %w", err)
	}
	if err := s.client.HSetNX(ctx, s.key, fieldKey(channelID, messageID), value).Err(); err != nil {
		return fmt.Errorf("redis HSETNX %s: %w", s.key, err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
