// Package ledger runs the transfer pipeline: intake locks funds and
// enqueues PENDING transactions on the mempool list, the processor
// cycle pops batches, executes the balance movements under per
// transaction leases and seals the surviving transactions into
// hash-linked blocks. A janitor re-enqueues transactions whose queue
// entry was lost.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openvault/ledger-node/log"
	"github.com/openvault/ledger-node/queue"
	"github.com/openvault/ledger-node/storage"
)

// Config tunes the transfer pipeline. Zero values are replaced with the
// defaults from DefaultConfig.
type Config struct {
	// BatchSize is the maximum number of transactions popped per cycle.
	BatchSize int
	// BlockTime is the maximum age of an unsealed batch before it is
	// sealed regardless of size.
	BlockTime time.Duration
	// MinTxsPerBlock is the batch size that triggers sealing before
	// BlockTime elapses.
	MinTxsPerBlock int
	// Interval is the pause between processor cycles.
	Interval time.Duration
	// MempoolList is the queue list PENDING transaction ids wait on.
	MempoolList string
	// DeadLetterList receives ids whose execution errored.
	DeadLetterList string
	// BalanceCacheTTL bounds staleness of cached balance reads. Zero
	// disables the cache.
	BalanceCacheTTL time.Duration
	// LeaseTTL is the per-transaction execution lease duration.
	LeaseTTL time.Duration
}

// DefaultConfig returns the stock pipeline tuning.
func DefaultConfig() Config {
	return Config{
		BatchSize:      10,
		BlockTime:      15 * time.Second,
		MinTxsPerBlock: 3,
		Interval:       5 * time.Second,
		MempoolList:    "tx:mempool",
		DeadLetterList: "tx:dead_letter",
		LeaseTTL:       60 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.BlockTime <= 0 {
		c.BlockTime = d.BlockTime
	}
	if c.MinTxsPerBlock <= 0 {
		c.MinTxsPerBlock = d.MinTxsPerBlock
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.MempoolList == "" {
		c.MempoolList = d.MempoolList
	}
	if c.DeadLetterList == "" {
		c.DeadLetterList = d.DeadLetterList
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = d.LeaseTTL
	}
	return c
}

// Engine wires the account store, the queue and the clock into the
// transfer pipeline.
type Engine struct {
	stg   *storage.Storage
	queue queue.Queue
	clock Clock
	cfg   Config

	sealMu       sync.Mutex
	lastSealedAt time.Time

	cycleRunning atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a pipeline engine. A nil clock falls back to wall time.
func New(stg *storage.Storage, q queue.Queue, clock Clock, cfg Config) (*Engine, error) {
	if stg == nil {
		return nil, fmt.Errorf("ledger engine requires a storage instance")
	}
	if q == nil {
		return nil, fmt.Errorf("ledger engine requires a queue")
	}
	if clock == nil {
		clock = SystemClock()
	}
	e := &Engine{
		stg:   stg,
		queue: q,
		clock: clock,
		cfg:   cfg.withDefaults(),
	}
	e.lastSealedAt = clock.Now()
	return e, nil
}

// Config returns the effective pipeline tuning.
func (e *Engine) Config() Config { return e.cfg }

// Start launches the processor and janitor loops. Stop cancels them.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.cfg.Interval)
		defer ticker.Stop()
		log.Infow("transaction processor started",
			"interval", e.cfg.Interval.String(),
			"batchSize", e.cfg.BatchSize,
			"blockTime", e.cfg.BlockTime.String(),
			"minTxsPerBlock", e.cfg.MinTxsPerBlock)
		for {
			select {
			case <-ctx.Done():
				log.Info("transaction processor stopped")
				return
			case <-ticker.C:
				if err := e.Cycle(ctx); err != nil {
					log.Errorw(err, "processor cycle failed")
				}
			}
		}
	}()
	go func() {
		defer e.wg.Done()
		// The janitor races nothing: re-enqueueing an id already on the
		// list is harmless because the cycle deduplicates the batch.
		ticker := time.NewTicker(e.janitorInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.janitorCycle(ctx); err != nil {
					log.Errorw(err, "janitor cycle failed")
				}
			}
		}
	}()
}

// Stop cancels the loops and waits for the current cycle to finish.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}
