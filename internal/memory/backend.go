package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Backend is the pluggable persistence surface a Store writes Records
// through. The default is in-process; a Redis-backed implementation is
// available for deployments that want the archive to survive a restart or
// be shared across processes (per the spec's eventual-consistency,
// append-mostly shared-memory policy).
type Backend interface {
	Put(ctx context.Context, r Record) error
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// InMemoryBackend stores Records in a process-local slice, oldest evicted
// first once maxRecords is exceeded. Safe for concurrent use.
type InMemoryBackend struct {
	mu         sync.RWMutex
	records    []Record
	maxRecords int
}

// NewInMemoryBackend creates a Backend bounded at maxRecords entries; a
// non-positive value means unbounded.
func NewInMemoryBackend(maxRecords int) *InMemoryBackend {
	return &InMemoryBackend{maxRecords: maxRecords}
}

func (b *InMemoryBackend) Put(ctx context.Context, r Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, r)
	if b.maxRecords > 0 && len(b.records) > b.maxRecords {
		overflow := len(b.records) - b.maxRecords
		b.records = b.records[overflow:]
	}
	return nil
}

func (b *InMemoryBackend) List(ctx context.Context) ([]Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Record, len(b.records))
	copy(out, b.records)
	return out, nil
}

func (b *InMemoryBackend) Close() error { return nil }

// RedisBackend persists Records as JSON entries in a single Redis list,
// trimmed to maxRecords on every write.
type RedisBackend struct {
	client     *redis.Client
	key        string
	maxRecords int64
}

// NewRedisBackend creates a Backend that stores records under key on
// client, keeping at most maxRecords entries (non-positive means
// unbounded).
func NewRedisBackend(client *redis.Client, key string, maxRecords int64) *RedisBackend {
	return &RedisBackend{client: client, key: key, maxRecords: maxRecords}
}

func (b *RedisBackend) Put(ctx context.Context, r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal memory record: %w", err)
	}
	pipe := b.client.TxPipeline()
	pipe.RPush(ctx, b.key, data)
	if b.maxRecords > 0 {
		pipe.LTrim(ctx, b.key, -b.maxRecords, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write memory record to redis: %w", err)
	}
	return nil
}

func (b *RedisBackend) List(ctx context.Context) ([]Record, error) {
	raw, err := b.client.LRange(ctx, b.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list memory records from redis: %w", err)
	}
	out := make([]Record, 0, len(raw))
	for _, s := range raw {
		var r Record
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			continue // a corrupt entry does not invalidate the rest of the archive
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (b *RedisBackend) Close() error { return b.client.Close() }
