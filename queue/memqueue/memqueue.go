// Package memqueue implements queue.Queue in process memory. It backs
// tests and the embedded single-binary mode where no Redis is
// deployed. Lists, leases and cache entries behave like their Redis
// counterparts, including TTL expiry, but provide no durability across
// restarts.
package memqueue

import (
	"context"
	"sync"
	"time"

	"github.com/openvault/ledger-node/queue"
)

type item struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Queue is an in-memory queue.Queue.
type Queue struct {
	mu    sync.Mutex
	lists map[string][]string
	keys  map[string]item

	// now is replaceable for TTL tests.
	now func() time.Time
}

var _ queue.Queue = (*Queue)(nil)

// New returns an empty in-memory queue.
func New() *Queue {
	return &Queue{
		lists: make(map[string][]string),
		keys:  make(map[string]item),
		now:   time.Now,
	}
}

// SetNowFunc replaces the clock used for TTL expiry. Test helper.
func (q *Queue) SetNowFunc(now func() time.Time) {
	q.mu.Lock()
	q.now = now
	q.mu.Unlock()
}

func (q *Queue) LPush(_ context.Context, list string, values ...string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	// LPUSH prepends values one by one, so the last value ends up at
	// the head.
	for _, v := range values {
		q.lists[list] = append([]string{v}, q.lists[list]...)
	}
	return int64(len(q.lists[list])), nil
}

func (q *Queue) RPop(_ context.Context, list string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	l := q.lists[list]
	if len(l) == 0 {
		return "", queue.ErrEmpty
	}
	v := l[len(l)-1]
	q.lists[list] = l[:len(l)-1]
	return v, nil
}

func (q *Queue) LLen(_ context.Context, list string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.lists[list])), nil
}

func (q *Queue) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if it, ok := q.keys[key]; ok && !q.expired(it) {
		return false, nil
	}
	q.keys[key] = item{value: value, expiresAt: q.expiry(ttl)}
	return true, nil
}

func (q *Queue) Del(_ context.Context, keys ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, k := range keys {
		delete(q.keys, k)
	}
	return nil
}

func (q *Queue) SetEx(_ context.Context, key, value string, ttl time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.keys[key] = item{value: value, expiresAt: q.expiry(ttl)}
	return nil
}

func (q *Queue) Get(_ context.Context, key string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, ok := q.keys[key]
	if !ok || q.expired(it) {
		delete(q.keys, key)
		return "", queue.ErrCacheMiss
	}
	return it.value, nil
}

func (q *Queue) Close() error { return nil }

func (q *Queue) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return q.now().Add(ttl)
}

func (q *Queue) expired(it item) bool {
	return !it.expiresAt.IsZero() && q.now().After(it.expiresAt)
}
