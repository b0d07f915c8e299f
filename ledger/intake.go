package ledger

import (
	"context"
	"fmt"

	"github.com/openvault/ledger-node/log"
	"github.com/openvault/ledger-node/storage"
	"github.com/openvault/ledger-node/types"
)

// TransferRequest is a transfer submission as it arrives from the API.
type TransferRequest struct {
	UserID      string
	FromAddress string
	ToAddress   string
	Amount      string
	Currency    string
	Description string
}

// SubmitTransfer validates the request, runs the intake critical
// section (ownership and balance checks, fund lock, nonce bump, PENDING
// row) and enqueues the transaction id on the mempool list. The fund
// lock commits before the enqueue, so a lost enqueue leaves a PENDING
// row the janitor recovers; the inverse order could move money for a
// transaction that was never admitted.
func (e *Engine) SubmitTransfer(ctx context.Context, req TransferRequest) (*types.Transaction, error) {
	amount, err := types.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if !amount.Positive() {
		return nil, fmt.Errorf("%w: transfer amount must be positive", types.ErrAmountMalformed)
	}
	if req.FromAddress == req.ToAddress {
		return nil, fmt.Errorf("%w: sender and recipient are the same account", storage.ErrInvariant)
	}

	tx, err := e.stg.CreateTransfer(storage.TransferParams{
		UserID:      req.UserID,
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
		Amount:      amount,
		Currency:    req.Currency,
		Description: req.Description,
	})
	if err != nil {
		return nil, err
	}

	if _, err := e.queue.LPush(ctx, e.cfg.MempoolList, tx.ID); err != nil {
		// The PENDING row and its fund lock are already durable. Do not
		// fail the submission; the janitor re-enqueues stale PENDING
		// transactions.
		log.Errorw(err, fmt.Sprintf("failed to enqueue transaction %s, recovery deferred to janitor", tx.ID))
	}
	e.invalidateBalance(ctx, tx.FromAddress)

	log.Debugw("transfer accepted",
		"tx", tx.ID,
		"hash", tx.SystemHash,
		"from", tx.FromAddress,
		"to", tx.ToAddress,
		"amount", tx.Amount.String(),
		"currency", tx.Currency)
	return tx, nil
}
