// Package queue defines the durable FIFO and lease collaborator the
// transaction pipeline coordinates through, plus the small key-value
// cache keyspace used by the balance read path. The contract is shaped
// after the Redis primitives it maps onto (LPUSH, RPOP, SET NX EX,
// DEL); queue/redisqueue implements it against a real Redis and
// queue/memqueue provides the embedded in-process equivalent.
package queue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmpty is returned by RPop when the list has no elements.
	ErrEmpty = errors.New("queue: empty")
	// ErrCacheMiss is returned by Get when the key does not exist or has
	// expired.
	ErrCacheMiss = errors.New("queue: cache miss")
)

// Queue is the durable list, lease and cache contract.
//
// Lists are FIFO when produced with LPush and consumed with RPop;
// pushing back to the head (retry path) is also an LPush. Leases are
// set-if-absent keys with a TTL: the winner of SetNX owns the key until
// it deletes it or the TTL expires.
type Queue interface {
	// LPush prepends values to the named list and returns the new length.
	LPush(ctx context.Context, list string, values ...string) (int64, error)
	// RPop removes and returns the tail element of the named list.
	// Returns ErrEmpty when there is nothing to pop.
	RPop(ctx context.Context, list string) (string, error)
	// LLen returns the length of the named list.
	LLen(ctx context.Context, list string) (int64, error)

	// SetNX sets key to value with a TTL only if the key does not exist.
	// Reports whether the key was acquired.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Del removes the given keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// SetEx stores a cache entry with a TTL.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns a cache entry, or ErrCacheMiss.
	Get(ctx context.Context, key string) (string, error)

	// Close releases the underlying resources.
	Close() error
}
