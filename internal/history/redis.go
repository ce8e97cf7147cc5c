package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements the Store interface on Redis. Records are JSON
// strings; a sorted set scored by creation time keeps them ordered.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// storedRecord wraps a record with cache metadata
type storedRecord struct {
	Record   *Record   `json:"record"`
	StoredAt time.Time `json:"stored_at"`
}

// NewRedisStore creates a store from a redis:// URL and verifies the connection.
func NewRedisStore(redisURL, prefix string, ttl time.Duration, poolSize int) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, prefix, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client. A zero ttl keeps records forever.
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "neuro-risk:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) recordKey(id string) string {
	return s.prefix + "assessment:" + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "assessments"
}

// Save stores a record, replacing any record with the same ID.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(storedRecord{Record: rec, StoredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.recordKey(rec.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(rec.CreatedAt.UnixNano()),
		Member: rec.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	val, err := s.client.Get(ctx, s.recordKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var stored storedRecord
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		// drop corrupted entries rather than failing every listing
		s.client.Del(ctx, s.recordKey(id))
		s.client.ZRem(ctx, s.indexKey(), id)
		return nil, ErrNotFound
	}
	return stored.Record, nil
}

// scan walks the index newest first, calling fn for each live record until fn returns false.
func (s *RedisStore) scan(ctx context.Context, fn func(*Record) bool) error {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	const batch = 100
	for start := 0; start < len(ids); start += batch {
		end := start + batch
		if end > len(ids) {
			end = len(ids)
		}

		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, s.recordKey(id))
		}
		vals, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("failed to load records: %w", err)
		}

		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				// expired by TTL; prune the index lazily
				s.client.ZRem(ctx, s.indexKey(), ids[start+i])
				continue
			}
			var stored storedRecord
			if err := json.Unmarshal([]byte(str), &stored); err != nil || stored.Record == nil {
				continue
			}
			if !fn(stored.Record) {
				return nil
			}
		}
	}
	return nil
}

// List returns matching records, newest first.
func (s *RedisStore) List(ctx context.Context, filter Filter) ([]*Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		result  []*Record
		skipped int
	)
	err := s.scan(ctx, func(rec *Record) bool {
		if !filter.Matches(rec) {
			return true
		}
		if skipped < filter.Offset {
			skipped++
			return true
		}
		result = append(result, rec)
		return len(result) < limit
	})
	return result, err
}

// Count returns the number of matching records.
func (s *RedisStore) Count(ctx context.Context, filter Filter) (int64, error) {
	var count int64
	err := s.scan(ctx, func(rec *Record) bool {
		if filter.Matches(rec) {
			count++
		}
		return true
	})
	return count, err
}

// Delete removes a record by ID.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.recordKey(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
