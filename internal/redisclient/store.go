package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohit83k/honeypot/internal/model"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every session key; subscribers filter on it.
const KeyPrefix = "honeypot:session:"

const defaultTTL = 7 * 24 * time.Hour

// RedisStore mirrors session records into Redis with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient returns a go-redis client with auto-reconnect and retry.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              db,
		MaxRetries:      5,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 1 * time.Second,
	})
}

// NewRedisStore returns a new RedisStore. A non-positive ttl uses the default.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Key returns the Redis key a record is stored under. The session ID keeps
// keys unique when one source reconnects within the same second.
func Key(record model.SessionRecord) string {
	return fmt.Sprintf("%s%s:%d:%s:%s", KeyPrefix, record.SourceIP, record.SourcePort, record.StartTime.Format("20060102T150405"), record.ID)
}

// Save stores the session record in Redis with a TTL.
func (r *RedisStore) Save(ctx context.Context, record model.SessionRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	err = r.client.Set(ctx, Key(record), string(value), r.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to save record in redis: %w", err)
	}

	return nil
}

// Load fetches and decodes the record stored under key.
func Load(ctx context.Context, client *redis.Client, key string) (model.SessionRecord, error) {
	var record model.SessionRecord
	raw, err := client.Get(ctx, key).Result()
	if err != nil {
		return record, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return record, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return record, nil
}

// Close releases the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
