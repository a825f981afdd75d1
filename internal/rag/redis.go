package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection parameters for the Redis vector store.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Password is the optional Redis password.
	Password string

	// DB is the logical database number.
	DB int

	// KeyPrefix namespaces every key written by the store (default: "moviechat").
	KeyPrefix string
}

// hash field names used for every stored record.
const (
	redisFieldID          = "id"
	redisFieldText        = "text"
	redisFieldDescription = "description"
	redisFieldVector      = "vec"
)

// RedisStore implements VectorStore on plain Redis hashes. Each record is
// one hash holding the packed vector and metadata; queries scan the
// collection's keys and score them client-side.
type RedisStore struct {
	// client is the go-redis client.
	client *redis.Client

	// prefix is prepended to every key.
	prefix string
}

// NewRedisStore creates a RedisStore. The connection is established lazily
// by go-redis on first use.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "moviechat"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{client: client, prefix: cfg.KeyPrefix}
}

// key returns the hash key for (collection, id).
func (s *RedisStore) key(collection, id string) string {
	return s.prefix + ":" + collection + ":" + id
}

// Upsert writes rec as a hash, replacing any existing fields.
func (s *RedisStore) Upsert(ctx context.Context, collection string, rec Record) error {
	if len(rec.Embedding) == 0 {
		return fmt.Errorf("redis: record %q has an empty embedding", rec.ID)
	}
	err := s.client.HSet(ctx, s.key(collection, rec.ID), map[string]any{
		redisFieldID:          rec.ID,
		redisFieldText:        rec.Text,
		redisFieldDescription: rec.Description,
		redisFieldVector:      float32sToBytes(rec.Embedding),
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: upsert %q failed: %w", rec.ID, err)
	}
	return nil
}

// Query scans every key in collection and ranks them by cosine similarity.
func (s *RedisStore) Query(ctx context.Context, collection string, vector []float32, limit int, minScore float32) ([]Match, error) {
	var matches []Match

	iter := s.client.Scan(ctx, 0, s.key(collection, "*"), 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: read %s failed: %w", iter.Val(), err)
		}
		stored := bytesToFloat32s([]byte(data[redisFieldVector]))
		if len(stored) == 0 {
			continue
		}
		if len(stored) != len(vector) {
			return nil, fmt.Errorf("redis: query %q: got %d, want %d: %w",
				collection, len(vector), len(stored), ErrDimensionMismatch)
		}
		matches = append(matches, Match{
			Record: Record{
				ID:          data[redisFieldID],
				Text:        data[redisFieldText],
				Description: data[redisFieldDescription],
			},
			Score: CosineSimilarity(vector, stored),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis: scan %q failed: %w", collection, err)
	}

	return rankMatches(matches, limit, minScore), nil
}

// Delete removes the hash for (collection, id).
func (s *RedisStore) Delete(ctx context.Context, collection string, id string) error {
	if err := s.client.Del(ctx, s.key(collection, id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis: delete %q failed: %w", id, err)
	}
	return nil
}

// Ping issues a Redis PING.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
