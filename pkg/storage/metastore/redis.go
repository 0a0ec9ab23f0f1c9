package metastore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

func newRedisStore(ctx context.Context, cfg Config) (Store, error) {
	if cfg.RedisURL == "" {
		return nil, errors.New("redis store: url is required")
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.MaxAttempts > 0 {
		opts.MaxRetries = cfg.MaxAttempts - 1
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &redisStore{client: client, prefix: cfg.KeyPrefix}, nil
}

// Put replaces the whole hash so stale fields never survive an overwrite.
func (s *redisStore) Put(ctx context.Context, item Item) error {
	key := itemKey(s.prefix, item.ID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"id", item.ID,
			"filetype", item.FileType,
			"size", FormatSize(item.SizeKiB),
		)
		return nil
	})
	return err
}

func (s *redisStore) Get(ctx context.Context, id string) (Item, error) {
	vals, err := s.client.HGetAll(ctx, itemKey(s.prefix, id)).Result()
	if err != nil {
		return Item{}, err
	}
	if len(vals) == 0 {
		return Item{}, ErrNotFound
	}

	kib, err := strconv.ParseFloat(vals["size"], 64)
	if err != nil {
		return Item{}, fmt.Errorf("redis item: parse size: %w", err)
	}
	return Item{ID: vals["id"], FileType: vals["filetype"], SizeKiB: kib}, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
