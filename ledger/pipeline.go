package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/openvault/ledger-node/log"
	"github.com/openvault/ledger-node/queue"
	"github.com/openvault/ledger-node/types"
)

// collected accumulates the PROCESSING transactions of one cycle,
// deduplicated by id.
type collected struct {
	refs []types.TxRef
	ids  map[string]bool
}

func (c *collected) add(tx *types.Transaction) {
	if c.ids == nil {
		c.ids = make(map[string]bool)
	}
	if c.ids[tx.ID] {
		return
	}
	c.ids[tx.ID] = true
	c.refs = append(c.refs, tx.Ref())
}

// Cycle runs one processor iteration: pop up to BatchSize ids from the
// mempool, execute each under its lease, and seal the resulting
// PROCESSING transactions into a block once the batch reaches
// MinTxsPerBlock or BlockTime has elapsed since the last seal. An
// unsealed batch is pushed back onto the mempool, never held in
// memory, so a crash between cycles loses nothing: the next pop
// reassembles it and ExecuteTransfer hands PROCESSING rows straight
// back for collection. At most one cycle runs at a time; overlapping
// invocations return immediately.
func (e *Engine) Cycle(ctx context.Context) error {
	if !e.cycleRunning.CompareAndSwap(false, true) {
		return nil
	}
	defer e.cycleRunning.Store(false)

	ids, err := e.popBatch(ctx)
	if err != nil {
		return fmt.Errorf("popping mempool batch: %w", err)
	}

	e.sealMu.Lock()
	defer e.sealMu.Unlock()

	var batch collected
	for _, id := range ids {
		if tx := e.executeOne(ctx, id); tx != nil {
			batch.add(tx)
		}
	}

	n := len(batch.refs)
	if n == 0 {
		return nil
	}
	now := e.clock.Now()
	if n < e.cfg.MinTxsPerBlock && now.Sub(e.lastSealedAt) < e.cfg.BlockTime {
		log.Debugw("batch below seal threshold, returning to mempool",
			"collected", n, "minTxsPerBlock", e.cfg.MinTxsPerBlock)
		return e.requeue(ctx, batch.refs)
	}

	b, err := e.stg.SealBlock(batch.refs, now)
	if err != nil {
		if rerr := e.requeue(ctx, batch.refs); rerr != nil {
			log.Errorw(rerr, "failed to return unsealed batch to mempool")
		}
		return fmt.Errorf("sealing block with %d transactions: %w", n, err)
	}
	e.lastSealedAt = now
	log.Infow("pipeline sealed block", "height", b.Height, "txCount", b.TxCount())
	return nil
}

// requeue pushes executed-but-unsealed transaction ids back onto the
// mempool list so they survive a restart.
func (e *Engine) requeue(ctx context.Context, refs []types.TxRef) error {
	for _, ref := range refs {
		if _, err := e.queue.LPush(ctx, e.cfg.MempoolList, ref.ID); err != nil {
			return fmt.Errorf("returning %s to mempool: %w", ref.ID, err)
		}
	}
	return nil
}

// popBatch drains up to BatchSize ids from the mempool list,
// deduplicated in pop order.
func (e *Engine) popBatch(ctx context.Context) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	for len(ids) < e.cfg.BatchSize {
		id, err := e.queue.RPop(ctx, e.cfg.MempoolList)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				break
			}
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// MempoolDepth returns the number of ids waiting on the mempool list.
func (e *Engine) MempoolDepth(ctx context.Context) (int64, error) {
	return e.queue.LLen(ctx, e.cfg.MempoolList)
}

// DeadLetterDepth returns the number of ids on the dead letter list.
func (e *Engine) DeadLetterDepth(ctx context.Context) (int64, error) {
	return e.queue.LLen(ctx, e.cfg.DeadLetterList)
}
