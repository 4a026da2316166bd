package oplog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
)

const (
	redisListKey = "postdup:oplog"
	redisLockKey = "postdup:oplog:lock"
)

// RedisStore keeps the log in a Redis list so several processes serving one
// installation share it. Writers serialise on a redislock.
type RedisStore struct {
	rdb     *redis.Client
	locker  *redislock.Client
	lockTTL time.Duration
}

func NewRedisStore(rdb *redis.Client, lockTTL time.Duration) *RedisStore {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	return &RedisStore{
		rdb:     rdb,
		locker:  redislock.New(rdb),
		lockTTL: lockTTL,
	}
}

// NewRedisStoreFromURL parses a redis:// URL and verifies the server answers.
func NewRedisStoreFromURL(ctx context.Context, url string, lockTTL time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStore(rdb, lockTTL), nil
}

func (s *RedisStore) withLock(ctx context.Context, fn func() error) error {
	lock, err := s.locker.Obtain(ctx, redisLockKey, s.lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(25*time.Millisecond), 200),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("operation log is busy: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to lock operation log: %w", err)
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()

	return fn()
}

func (s *RedisStore) Append(ctx context.Context, entry *content.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode log entry: %w", err)
	}

	return s.withLock(ctx, func() error {
		_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LPush(ctx, redisListKey, data)
			pipe.LTrim(ctx, redisListKey, 0, Capacity-1)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to append log entry: %w", err)
		}
		return nil
	})
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]*content.LogEntry, error) {
	raw, err := s.rdb.LRange(ctx, redisListKey, 0, int64(clampLimit(limit)-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	entries := make([]*content.LogEntry, 0, len(raw))
	for _, item := range raw {
		var e content.LogEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to decode log entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		if err := s.rdb.Del(ctx, redisListKey).Err(); err != nil {
			return fmt.Errorf("failed to clear log: %w", err)
		}
		return nil
	})
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
