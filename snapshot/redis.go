package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkgatebot/linkgate/blocklist"
)

// RedisStore keeps the canonical snapshot in a single redis key, with
// backups under timestamped keys. Same contract as FileStore; useful
// when the daemon runs somewhere without a persistent disk.
type RedisStore struct {
	Client *redis.Client
	Key    string
	Logger *slog.Logger
}

func NewRedisStore(redisURL, key string, logger *slog.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{Client: rdb, Key: key, Logger: logger}, nil
}

func (r *RedisStore) Load(ctx context.Context) (*blocklist.Store, error) {
	raw, err := r.Client.Get(ctx, r.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.Logger.Info("no snapshot in redis yet, starting empty", "key", r.Key)
		return Restore(Snapshot{}), nil
	}
	if err != nil {
		r.Logger.Error("snapshot read from redis failed, starting empty", "key", r.Key, "err", err)
		return Restore(Snapshot{}), nil
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		r.Logger.Error("snapshot in redis malformed, starting empty", "key", r.Key, "err", err)
		return Restore(Snapshot{}), nil
	}
	return Restore(snap), nil
}

func (r *RedisStore) Save(ctx context.Context, store *blocklist.Store) error {
	raw, err := json.Marshal(Capture(store))
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := r.Client.Set(ctx, r.Key, raw, 0).Err(); err != nil {
		return fmt.Errorf("writing snapshot to redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Backup(ctx context.Context, store *blocklist.Store) error {
	raw, err := json.Marshal(Capture(store))
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	key := fmt.Sprintf("%s.%s.bak", r.Key, time.Now().UTC().Format(backupStamp))
	if err := r.Client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("writing backup to redis: %w", err)
	}
	r.Logger.Info("wrote snapshot backup", "key", key)
	return nil
}
