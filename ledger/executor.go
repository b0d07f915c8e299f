package ledger

import (
	"context"
	"errors"

	"github.com/openvault/ledger-node/db"
	"github.com/openvault/ledger-node/log"
	"github.com/openvault/ledger-node/storage"
	"github.com/openvault/ledger-node/types"
)

const leaseKeyPrefix = "lock:tx:"

// executeOne applies the balance movement of one popped transaction
// under a queue lease, so two processor instances popping the same id
// (janitor redelivery) cannot execute it twice inside the lease window.
// It returns the transaction when it ended up PROCESSING and should be
// collected for the next block, or nil when it was dropped, failed or
// skipped.
func (e *Engine) executeOne(ctx context.Context, id string) *types.Transaction {
	leaseKey := leaseKeyPrefix + id
	acquired, err := e.queue.SetNX(ctx, leaseKey, "1", e.cfg.LeaseTTL)
	if err != nil {
		log.Errorw(err, "failed to acquire execution lease for "+id)
		return nil
	}
	if !acquired {
		// Another instance holds the lease. Its seal will cover the
		// transaction, or the janitor will redeliver it.
		log.Debugw("execution lease busy, skipping", "tx", id)
		return nil
	}
	defer func() {
		if err := e.queue.Del(ctx, leaseKey); err != nil {
			log.Warnw("failed to release execution lease", "tx", id, "error", err.Error())
		}
	}()

	tx, err := e.stg.ExecuteTransfer(id)
	switch {
	case err == nil && tx == nil:
		// Terminal or dropped by the executor itself.
		return nil
	case err == nil:
		e.invalidateBalance(ctx, tx.FromAddress, tx.ToAddress)
		return tx
	case errors.Is(err, storage.ErrNotFound):
		log.Warnw("popped transaction does not exist, dropping", "tx", id)
		return nil
	case errors.Is(err, db.ErrConflict):
		// Optimistic commit conflict. Leave the row PENDING; the lease
		// expires and the janitor redelivers.
		log.Debugw("execution conflict, deferring", "tx", id)
		return nil
	default:
		// Invariant violations and anything unexpected: make sure the
		// row is FAILED (a no-op when the executor critical section
		// already committed it) and dead-letter the id.
		log.Errorw(err, "execution failed for "+id)
		if _, ferr := e.stg.FailTransfer(id, err.Error(), true); ferr != nil {
			log.Errorw(ferr, "failed to mark transaction failed "+id)
		}
		if _, derr := e.queue.LPush(ctx, e.cfg.DeadLetterList, id); derr != nil {
			log.Errorw(derr, "failed to dead-letter transaction "+id)
		}
		return nil
	}
}
