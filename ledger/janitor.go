package ledger

import (
	"context"
	"time"

	"github.com/openvault/ledger-node/log"
	"github.com/openvault/ledger-node/types"
)

// stalePendingFactor sets the re-enqueue threshold relative to
// BlockTime. A PENDING transaction older than that should have been
// popped long ago; its queue entry was lost.
const stalePendingFactor = 2

func (e *Engine) janitorInterval() time.Duration {
	return e.cfg.BlockTime
}

func (e *Engine) stalePendingAge() time.Duration {
	return stalePendingFactor * e.cfg.BlockTime
}

// janitorCycle re-enqueues PENDING transactions whose mempool entry was
// lost (enqueue failure at intake, queue flush, crashed instance).
// Redelivering an id that is still on the list is safe: the cycle
// deduplicates its batch and execution is leased and idempotent.
func (e *Engine) janitorCycle(ctx context.Context) error {
	stale, err := e.stg.PendingOlderThan(e.stalePendingAge(), e.clock.Now())
	if err != nil {
		return err
	}
	for _, tx := range stale {
		if _, err := e.queue.LPush(ctx, e.cfg.MempoolList, tx.ID); err != nil {
			return err
		}
		log.Warnw("re-enqueued stale pending transaction",
			"tx", tx.ID, "age", e.clock.Now().Sub(tx.CreatedAt).String())
	}
	return nil
}

// StuckTransfers returns PROCESSING transactions older than maxAge.
// Their balances already moved, so no automatic recovery applies; the
// list is the operator's signal to investigate a seal that never
// happened.
func (e *Engine) StuckTransfers(maxAge time.Duration) ([]*types.Transaction, error) {
	return e.stg.StuckProcessing(maxAge, e.clock.Now())
}
