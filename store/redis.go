package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/nathoo/wayfarer/engine/save"
)

const (
	snapshotKeyPrefix = "wayfarer:snapshot:"
	snapshotIndexKey  = "wayfarer:snapshots"
)

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Client redis.UniversalClient
	TTL    time.Duration
}

// Validate validates the RedisConfig.
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.New("store: redis config cannot be nil")
	}
	if cfg.Client == nil {
		return errors.New("store: redis client cannot be nil")
	}
	return nil
}

// Redis keeps each snapshot under its own key and a hash of listing
// entries beside them.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisClient connects to a single Redis instance. The connection is
// lazy; the first command dials.
func NewRedisClient(addr, password string, db int) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedis returns a Redis-backed store.
func NewRedis(cfg *RedisConfig) (*Redis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Redis{client: cfg.Client, ttl: cfg.TTL}, nil
}

func (r *Redis) Put(ctx context.Context, slot string, b save.Bundle) (Entry, error) {
	entry, data, err := encode(slot, b)
	if err != nil {
		return Entry{}, err
	}
	meta, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding entry: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, snapshotKeyPrefix+slot, data, r.ttl)
	pipe.HSet(ctx, snapshotIndexKey, slot, meta)
	if _, err := pipe.Exec(ctx); err != nil {
		return Entry{}, fmt.Errorf("store snapshot: %w", err)
	}
	return entry, nil
}

func (r *Redis) Get(ctx context.Context, slot string) (*save.Bundle, error) {
	if err := checkSlot(slot); err != nil {
		return nil, err
	}
	data, err := r.client.Get(ctx, snapshotKeyPrefix+slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("slot %s: %w", slot, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return save.Load(data)
}

// List drops index entries whose snapshot key has expired.
func (r *Redis) List(ctx context.Context) ([]Entry, error) {
	index, err := r.client.HGetAll(ctx, snapshotIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var out []Entry
	var stale []string
	for slot, raw := range index {
		n, err := r.client.Exists(ctx, snapshotKeyPrefix+slot).Result()
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		if n == 0 {
			stale = append(stale, slot)
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("reading entry %s: %w", slot, err)
		}
		out = append(out, e)
	}
	if len(stale) > 0 {
		if err := r.client.HDel(ctx, snapshotIndexKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune snapshot index: %w", err)
		}
	}
	sortEntries(out)
	return out, nil
}

func (r *Redis) Delete(ctx context.Context, slot string) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, snapshotKeyPrefix+slot)
	pipe.HDel(ctx, snapshotIndexKey, slot)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("slot %s: %w", slot, ErrNotFound)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
