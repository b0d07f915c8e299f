// Package redisqueue implements queue.Queue on a Redis server. This is
// the deployment backend: the mempool list, per-transaction leases and
// the balance cache all live in the same Redis keyspace, which is what
// lets multiple processor instances coordinate.
package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openvault/ledger-node/queue"
)

// Queue is a Redis-backed queue.Queue.
type Queue struct {
	rdb *redis.Client
}

var _ queue.Queue = (*Queue)(nil)

// New connects to the Redis server at addr (host:port) and verifies the
// connection with a ping.
func New(ctx context.Context, addr, password string, dbIndex int) (*Queue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIndex,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Queue{rdb: rdb}, nil
}

func (q *Queue) LPush(ctx context.Context, list string, values ...string) (int64, error) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return q.rdb.LPush(ctx, list, args...).Result()
}

func (q *Queue) RPop(ctx context.Context, list string) (string, error) {
	v, err := q.rdb.RPop(ctx, list).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", queue.ErrEmpty
		}
		return "", err
	}
	return v, nil
}

func (q *Queue) LLen(ctx context.Context, list string) (int64, error) {
	return q.rdb.LLen(ctx, list).Result()
}

func (q *Queue) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return q.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (q *Queue) Del(ctx context.Context, keys ...string) error {
	return q.rdb.Del(ctx, keys...).Err()
}

func (q *Queue) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return q.rdb.Set(ctx, key, value, ttl).Err()
}

func (q *Queue) Get(ctx context.Context, key string) (string, error) {
	v, err := q.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", queue.ErrCacheMiss
		}
		return "", err
	}
	return v, nil
}

func (q *Queue) Close() error {
	return q.rdb.Close()
}
