package memqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/openvault/ledger-node/queue"
)

func TestListFIFO(t *testing.T) {
	c := qt.New(t)
	q := New()
	ctx := context.Background()

	n, err := q.LPush(ctx, "l", "a")
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, int64(1))
	_, err = q.LPush(ctx, "l", "b", "c")
	c.Assert(err, qt.IsNil)

	depth, err := q.LLen(ctx, "l")
	c.Assert(err, qt.IsNil)
	c.Assert(depth, qt.Equals, int64(3))

	// LPUSH + RPOP behaves as a FIFO
	for _, want := range []string{"a", "b", "c"} {
		v, err := q.RPop(ctx, "l")
		c.Assert(err, qt.IsNil)
		c.Assert(v, qt.Equals, want)
	}
	_, err = q.RPop(ctx, "l")
	c.Assert(err, qt.ErrorIs, queue.ErrEmpty)
}

func TestSetNXLease(t *testing.T) {
	c := qt.New(t)
	q := New()
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	q.SetNowFunc(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	ok, err := q.SetNX(ctx, "lock:tx:1", "1", time.Minute)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// held lease cannot be re-acquired
	ok, err = q.SetNX(ctx, "lock:tx:1", "1", time.Minute)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	// after expiry it can
	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	ok, err = q.SetNX(ctx, "lock:tx:1", "1", time.Minute)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// explicit release works regardless of TTL
	c.Assert(q.Del(ctx, "lock:tx:1"), qt.IsNil)
	ok, err = q.SetNX(ctx, "lock:tx:1", "1", time.Minute)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
}

func TestCacheTTL(t *testing.T) {
	c := qt.New(t)
	q := New()
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	q.SetNowFunc(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	c.Assert(q.SetEx(ctx, "balance:acc_1", `{"total":"10"}`, 30*time.Second), qt.IsNil)

	v, err := q.Get(ctx, "balance:acc_1")
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, `{"total":"10"}`)

	mu.Lock()
	now = now.Add(time.Minute)
	mu.Unlock()
	_, err = q.Get(ctx, "balance:acc_1")
	c.Assert(err, qt.ErrorIs, queue.ErrCacheMiss)

	_, err = q.Get(ctx, "never-set")
	c.Assert(err, qt.ErrorIs, queue.ErrCacheMiss)

	// zero TTL means no expiry
	c.Assert(q.SetEx(ctx, "k", "v", 0), qt.IsNil)
	mu.Lock()
	now = now.Add(24 * time.Hour)
	mu.Unlock()
	v, err = q.Get(ctx, "k")
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, "v")
}
