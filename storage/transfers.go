package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openvault/ledger-node/db"
	"github.com/openvault/ledger-node/types"
	"github.com/openvault/ledger-node/util"
)

// systemHashBytes is the entropy of a transaction handle (txn_<hex>).
const systemHashBytes = 16

// TransferParams carries a transfer submission into the intake critical
// section. UserID is the authenticated submitter, checked against the
// sender wallet.
type TransferParams struct {
	UserID      string
	FromAddress string
	ToAddress   string
	Amount      types.Amount
	Currency    string
	Description string
}

// CreateTransfer runs the intake critical section under the sender's
// account lock: it verifies ownership, currency and available balance,
// locks the funds, bumps the sender nonce and persists the PENDING
// transaction. All of it commits in one write transaction, so a crash
// leaves either no trace or a fully locked PENDING row.
func (s *Storage) CreateTransfer(p TransferParams) (*types.Transaction, error) {
	cur, err := NormalizeCurrency(p.Currency)
	if err != nil {
		return nil, err
	}
	if !p.Amount.Positive() {
		return nil, fmt.Errorf("%w: transfer amount must be positive", ErrInvariant)
	}
	if p.FromAddress == p.ToAddress {
		return nil, fmt.Errorf("%w: sender and recipient are the same account", ErrInvariant)
	}

	unlock := s.accountLocks.Lock(p.FromAddress)
	defer unlock()

	wtx := s.db.WriteTx()
	defer wtx.Discard()

	fromID, err := getIndex(wtx, accountAddrPrefix, []byte(p.FromAddress))
	if err != nil {
		return nil, fmt.Errorf("sender %s: %w", p.FromAddress, err)
	}
	from, err := s.account(wtx, string(fromID))
	if err != nil {
		return nil, err
	}
	owner, err := s.AccountOwner(from)
	if err != nil {
		return nil, err
	}
	if owner != p.UserID {
		return nil, ErrForbidden
	}
	if from.Currency != cur {
		return nil, fmt.Errorf("%w: sender account holds %s, transfer is %s", ErrCurrencyMismatch, from.Currency, cur)
	}

	toID, err := getIndex(wtx, accountAddrPrefix, []byte(p.ToAddress))
	if err != nil {
		return nil, fmt.Errorf("recipient %s: %w", p.ToAddress, err)
	}
	to, err := s.account(wtx, string(toID))
	if err != nil {
		return nil, err
	}
	if to.Currency != cur {
		return nil, fmt.Errorf("%w: recipient account holds %s, transfer is %s", ErrCurrencyMismatch, to.Currency, cur)
	}

	if from.Available() < p.Amount {
		return nil, fmt.Errorf("%w: available %s, requested %s", ErrInsufficientFunds, from.Available(), p.Amount)
	}

	prevNonce := from.Nonce
	from.Locked, err = from.Locked.Add(p.Amount)
	if err != nil {
		return nil, err
	}
	from.Nonce++
	if !from.CheckInvariants() {
		return nil, fmt.Errorf("%w: sender %s after fund lock", ErrInvariant, from.SystemAddress)
	}

	tx := &types.Transaction{
		ID:            uuid.NewString(),
		SystemHash:    "txn_" + util.RandomHex(systemHashBytes),
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		FromAddress:   from.SystemAddress,
		ToAddress:     to.SystemAddress,
		Amount:        p.Amount,
		Currency:      cur,
		Status:        types.TxStatusPending,
		Type:          types.TxTypeTransfer,
		AccountNonce:  prevNonce,
		Description:   p.Description,
		CreatedAt:     s.now().UTC(),
	}

	if err := setArtifact(wtx, accountPrefix, []byte(from.ID), from); err != nil {
		return nil, err
	}
	if err := s.putTransaction(wtx, tx, true); err != nil {
		return nil, err
	}
	if err := wtx.Commit(); err != nil {
		return nil, err
	}
	return tx, nil
}

// ExecuteTransfer moves a PENDING transaction to PROCESSING and applies
// the double-entry balance movement. It is idempotent under redelivery:
//
//   - missing transaction: (nil, ErrNotFound)
//   - already PROCESSING: (tx, nil), no balance change
//   - terminal (CONFIRMED, FAILED, CANCELLED): (nil, nil), drop
//   - PENDING with corrupted lock state: marked FAILED, (nil, ErrInvariant)
//   - PENDING with balance below amount: FAILED, lock reverted,
//     (nil, ErrInvariant)
//   - PENDING and executable: debit, credit, PROCESSING, (tx, nil)
func (s *Storage) ExecuteTransfer(id string) (*types.Transaction, error) {
	peek, err := s.Transaction(id)
	if err != nil {
		return nil, err
	}

	unlock := s.accountLocks.Lock(peek.FromAddress, peek.ToAddress)
	defer unlock()

	wtx := s.db.WriteTx()
	defer wtx.Discard()

	tx := &types.Transaction{}
	if err := getArtifact(wtx, txPrefix, []byte(id), tx); err != nil {
		return nil, err
	}
	switch {
	case tx.Status == types.TxStatusProcessing:
		return tx, nil
	case tx.Status.Terminal():
		return nil, nil
	case tx.Status != types.TxStatusPending:
		return nil, fmt.Errorf("%w: transaction %s in status %s", ErrInvariant, id, tx.Status)
	}

	from, err := s.account(wtx, tx.FromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := s.account(wtx, tx.ToAccountID)
	if err != nil {
		return nil, err
	}

	if from.Locked < tx.Amount {
		// The locked funds recorded at intake are gone. Nothing coherent
		// to revert; fail the transaction and keep the account as is.
		tx.Status = types.TxStatusFailed
		tx.FailureReason = "Inconsistent locked amount"
		if err := s.putTransaction(wtx, tx, false); err != nil {
			return nil, err
		}
		if err := wtx.Commit(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: locked funds below transfer amount for %s", ErrInvariant, id)
	}

	if from.Balance < tx.Amount {
		tx.Status = types.TxStatusFailed
		tx.FailureReason = "Insufficient balance at execution"
		from.Locked -= tx.Amount
		if !from.CheckInvariants() {
			return nil, fmt.Errorf("%w: sender %s after lock revert", ErrInvariant, from.SystemAddress)
		}
		if err := setArtifact(wtx, accountPrefix, []byte(from.ID), from); err != nil {
			return nil, err
		}
		if err := s.putTransaction(wtx, tx, false); err != nil {
			return nil, err
		}
		if err := wtx.Commit(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: balance below transfer amount for %s", ErrInvariant, id)
	}

	from.Balance -= tx.Amount
	from.Locked -= tx.Amount
	to.Balance, err = to.Balance.Add(tx.Amount)
	if err != nil {
		return nil, err
	}
	if !from.CheckInvariants() || !to.CheckInvariants() {
		return nil, fmt.Errorf("%w: accounts after transfer %s", ErrInvariant, tx.ID)
	}
	tx.Status = types.TxStatusProcessing

	if err := setArtifact(wtx, accountPrefix, []byte(from.ID), from); err != nil {
		return nil, err
	}
	if err := setArtifact(wtx, accountPrefix, []byte(to.ID), to); err != nil {
		return nil, err
	}
	if err := s.putTransaction(wtx, tx, false); err != nil {
		return nil, err
	}
	if err := wtx.Commit(); err != nil {
		return nil, err
	}
	return tx, nil
}

// FailTransfer marks a transaction FAILED with the given reason. When
// revertLock is set and the transaction is still PENDING, the funds
// locked at intake are released back to the sender.
func (s *Storage) FailTransfer(id, reason string, revertLock bool) (*types.Transaction, error) {
	peek, err := s.Transaction(id)
	if err != nil {
		return nil, err
	}

	unlock := s.accountLocks.Lock(peek.FromAddress)
	defer unlock()

	wtx := s.db.WriteTx()
	defer wtx.Discard()

	tx := &types.Transaction{}
	if err := getArtifact(wtx, txPrefix, []byte(id), tx); err != nil {
		return nil, err
	}
	if tx.Status.Terminal() {
		return tx, nil
	}
	if !types.CanTransition(tx.Status, types.TxStatusFailed) {
		return nil, fmt.Errorf("%w: cannot fail transaction %s from status %s", ErrInvariant, id, tx.Status)
	}

	if revertLock && tx.Status == types.TxStatusPending {
		from, err := s.account(wtx, tx.FromAccountID)
		if err != nil {
			return nil, err
		}
		if from.Locked >= tx.Amount {
			from.Locked -= tx.Amount
			if err := setArtifact(wtx, accountPrefix, []byte(from.ID), from); err != nil {
				return nil, err
			}
		}
	}

	tx.Status = types.TxStatusFailed
	tx.FailureReason = reason
	if err := s.putTransaction(wtx, tx, false); err != nil {
		return nil, err
	}
	if err := wtx.Commit(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Transaction returns a transaction by id.
func (s *Storage) Transaction(id string) (*types.Transaction, error) {
	tx := &types.Transaction{}
	if err := getArtifact(s.db, txPrefix, []byte(id), tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// TransactionByHash resolves a system hash to its transaction.
func (s *Storage) TransactionByHash(systemHash string) (*types.Transaction, error) {
	id, err := getIndex(s.db, txHashPrefix, []byte(systemHash))
	if err != nil {
		return nil, err
	}
	return s.Transaction(string(id))
}

// TransactionsByAccount returns the transactions touching the given
// account, newest first, up to limit (0 means no limit).
func (s *Storage) TransactionsByAccount(accountID string, limit int) ([]*types.Transaction, error) {
	var ids []string
	prefix := []byte(accountID + "/")
	err := s.db.Iterate(append(append([]byte{}, txAccountPrefix...), prefix...), func(_, v []byte) bool {
		ids = append(ids, string(v))
		return true
	})
	if err != nil {
		return nil, err
	}
	// The history index is keyed by creation time ascending; reverse for
	// newest first.
	txs := make([]*types.Transaction, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(txs) >= limit {
			break
		}
		tx, err := s.Transaction(ids[i])
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// PendingOlderThan returns the PENDING transactions created before
// now-maxAge. The janitor re-enqueues them.
func (s *Storage) PendingOlderThan(maxAge time.Duration, now time.Time) ([]*types.Transaction, error) {
	return s.scanByStatus(types.TxStatusPending, maxAge, now)
}

// StuckProcessing returns the PROCESSING transactions created before
// now-maxAge. Balances already moved for these, so they are never
// re-enqueued automatically; the list is exposed for operators.
func (s *Storage) StuckProcessing(maxAge time.Duration, now time.Time) ([]*types.Transaction, error) {
	return s.scanByStatus(types.TxStatusProcessing, maxAge, now)
}

func (s *Storage) scanByStatus(status types.TxStatus, maxAge time.Duration, now time.Time) ([]*types.Transaction, error) {
	cutoff := now.Add(-maxAge)
	var out []*types.Transaction
	err := s.db.Iterate(txPrefix, func(_, v []byte) bool {
		tx := &types.Transaction{}
		if err := DecodeArtifact(v, tx); err != nil {
			return true
		}
		if tx.Status == status && tx.CreatedAt.Before(cutoff) {
			out = append(out, tx)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// putTransaction writes the transaction row and, on first insert, its
// hash and per-account history indexes.
func (s *Storage) putTransaction(wtx db.WriteTx, tx *types.Transaction, insert bool) error {
	if err := setArtifact(wtx, txPrefix, []byte(tx.ID), tx); err != nil {
		return err
	}
	if !insert {
		return nil
	}
	if err := setIndex(wtx, txHashPrefix, []byte(tx.SystemHash), []byte(tx.ID)); err != nil {
		return err
	}
	for _, accountID := range []string{tx.FromAccountID, tx.ToAccountID} {
		key := fmt.Sprintf("%s/%020d/%s", accountID, tx.CreatedAt.UnixNano(), tx.ID)
		if err := setIndex(wtx, txAccountPrefix, []byte(key), []byte(tx.ID)); err != nil {
			return err
		}
	}
	return nil
}
