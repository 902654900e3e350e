package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/carebook/internal/availability/application/cache"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how long a last known-good record is kept.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "carebook:availability:snapshot:"

	// recordVersion is bumped when the stored record shape changes; older
	// records are then treated as absent.
	recordVersion = 1
)

// RedisStore keeps availability records in Redis.
// Keys are namespaced: carebook:availability:snapshot:{physician_id}
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ cache.SnapshotStore = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed snapshot store.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Key returns the Redis key holding a physician's record.
func Key(physicianID uuid.UUID) string {
	return keyPrefix + physicianID.String()
}

type storedRecord struct {
	Version int          `json:"version"`
	Record  cache.Record `json:"record"`
}

// Load returns the physician's record, or nil when none is stored.
func (s *RedisStore) Load(ctx context.Context, physicianID uuid.UUID) (*cache.Record, error) {
	data, err := s.client.Get(ctx, Key(physicianID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return decode(data)
}

// Save stores the physician's record with the store TTL.
func (s *RedisStore) Save(ctx context.Context, physicianID uuid.UUID, record cache.Record) error {
	data, err := encode(record)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, Key(physicianID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Delete removes the physician's record.
func (s *RedisStore) Delete(ctx context.Context, physicianID uuid.UUID) error {
	return s.client.Del(ctx, Key(physicianID)).Err()
}

func encode(record cache.Record) ([]byte, error) {
	data, err := json.Marshal(storedRecord{Version: recordVersion, Record: record})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*cache.Record, error) {
	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if stored.Version != recordVersion {
		return nil, nil
	}
	return &stored.Record, nil
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
