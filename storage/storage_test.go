package storage_test

import (
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/openvault/ledger-node/db"
	"github.com/openvault/ledger-node/db/metadb"
	"github.com/openvault/ledger-node/storage"
	"github.com/openvault/ledger-node/types"
)

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	mdb, err := metadb.New(db.TypeInMemory, t.TempDir())
	qt.Assert(t, err, qt.IsNil)
	stg := storage.New(mdb)
	t.Cleanup(stg.Close)
	return stg
}

// newFundedAccount creates a wallet and account for userID and credits
// it with the given amount.
func newFundedAccount(t *testing.T, stg *storage.Storage, userID, currency, amount string) *types.Account {
	t.Helper()
	c := qt.New(t)
	w, err := stg.CreateWallet(userID)
	c.Assert(err, qt.IsNil)
	acc, err := stg.CreateAccount(w.ID, currency)
	c.Assert(err, qt.IsNil)
	if amount != "" {
		acc, err = stg.Deposit(acc.SystemAddress, types.MustParseAmount(amount))
		c.Assert(err, qt.IsNil)
	}
	return acc
}

func TestWalletAndAccountCreation(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	w, err := stg.CreateWallet("user-1")
	c.Assert(err, qt.IsNil)

	acc, err := stg.CreateAccount(w.ID, "usd")
	c.Assert(err, qt.IsNil)
	c.Assert(acc.Currency, qt.Equals, "USD")
	c.Assert(acc.SystemAddress, qt.Matches, "acc_[0-9a-f]+")
	c.Assert(acc.Balance, qt.Equals, types.Amount(0))

	// one account per wallet and currency
	_, err = stg.CreateAccount(w.ID, "USD")
	c.Assert(err, qt.ErrorIs, storage.ErrKeyAlreadyExists)

	// a different currency is fine
	_, err = stg.CreateAccount(w.ID, "EUR")
	c.Assert(err, qt.IsNil)

	got, err := stg.AccountByAddress(acc.SystemAddress)
	c.Assert(err, qt.IsNil)
	c.Assert(got.ID, qt.Equals, acc.ID)

	owner, err := stg.AccountOwner(got)
	c.Assert(err, qt.IsNil)
	c.Assert(owner, qt.Equals, "user-1")

	accounts, err := stg.AccountsByWallet(w.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(accounts, qt.HasLen, 2)

	wallets, err := stg.WalletsByUser("user-1")
	c.Assert(err, qt.IsNil)
	c.Assert(wallets, qt.HasLen, 1)

	_, err = stg.CreateAccount("no-such-wallet", "USD")
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)
}

func TestDeposit(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	acc := newFundedAccount(t, stg, "user-1", "USD", "")

	got, err := stg.Deposit(acc.SystemAddress, types.MustParseAmount("150.75"))
	c.Assert(err, qt.IsNil)
	c.Assert(got.Balance.String(), qt.Equals, "150.75")

	_, err = stg.Deposit(acc.SystemAddress, types.MustParseAmount("-1"))
	c.Assert(err, qt.ErrorIs, storage.ErrInvariant)

	_, err = stg.Deposit("acc_missing", types.MustParseAmount("1"))
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)
}

func TestCreateTransfer(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	from := newFundedAccount(t, stg, "alice", "USD", "100")
	to := newFundedAccount(t, stg, "bob", "USD", "")

	tx, err := stg.CreateTransfer(storage.TransferParams{
		UserID:      "alice",
		FromAddress: from.SystemAddress,
		ToAddress:   to.SystemAddress,
		Amount:      types.MustParseAmount("60"),
		Currency:    "USD",
		Description: "rent",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(tx.Status, qt.Equals, types.TxStatusPending)
	c.Assert(tx.SystemHash, qt.Matches, "txn_[0-9a-f]+")
	c.Assert(tx.AccountNonce, qt.Equals, uint64(0))

	// funds locked, nonce bumped, balance untouched
	sender, err := stg.AccountByAddress(from.SystemAddress)
	c.Assert(err, qt.IsNil)
	c.Assert(sender.Balance.String(), qt.Equals, "100")
	c.Assert(sender.Locked.String(), qt.Equals, "60")
	c.Assert(sender.Available().String(), qt.Equals, "40")
	c.Assert(sender.Nonce, qt.Equals, uint64(1))

	// hash index resolves
	got, err := stg.TransactionByHash(tx.SystemHash)
	c.Assert(err, qt.IsNil)
	c.Assert(got.ID, qt.Equals, tx.ID)

	// both endpoints see it in their history
	for _, id := range []string{tx.FromAccountID, tx.ToAccountID} {
		history, err := stg.TransactionsByAccount(id, 0)
		c.Assert(err, qt.IsNil)
		c.Assert(history, qt.HasLen, 1)
	}
}

func TestCreateTransferRejections(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	from := newFundedAccount(t, stg, "alice", "USD", "100")
	to := newFundedAccount(t, stg, "bob", "USD", "")
	eur := newFundedAccount(t, stg, "carol", "EUR", "")

	params := storage.TransferParams{
		UserID:      "alice",
		FromAddress: from.SystemAddress,
		ToAddress:   to.SystemAddress,
		Amount:      types.MustParseAmount("60"),
		Currency:    "USD",
	}

	// not the owner
	p := params
	p.UserID = "mallory"
	_, err := stg.CreateTransfer(p)
	c.Assert(err, qt.ErrorIs, storage.ErrForbidden)

	// over the available balance
	p = params
	p.Amount = types.MustParseAmount("100.00000001")
	_, err = stg.CreateTransfer(p)
	c.Assert(err, qt.ErrorIs, storage.ErrInsufficientFunds)

	// recipient holds another currency
	p = params
	p.ToAddress = eur.SystemAddress
	_, err = stg.CreateTransfer(p)
	c.Assert(err, qt.ErrorIs, storage.ErrCurrencyMismatch)

	// transfer currency does not match the sender account
	p = params
	p.Currency = "EUR"
	_, err = stg.CreateTransfer(p)
	c.Assert(err, qt.ErrorIs, storage.ErrCurrencyMismatch)

	// unknown recipient
	p = params
	p.ToAddress = "acc_missing"
	_, err = stg.CreateTransfer(p)
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)

	// self transfer
	p = params
	p.ToAddress = from.SystemAddress
	_, err = stg.CreateTransfer(p)
	c.Assert(err, qt.ErrorIs, storage.ErrInvariant)

	// nothing leaked into the sender account
	sender, err := stg.AccountByAddress(from.SystemAddress)
	c.Assert(err, qt.IsNil)
	c.Assert(sender.Locked, qt.Equals, types.Amount(0))
	c.Assert(sender.Nonce, qt.Equals, uint64(0))
}

func TestConcurrentDoubleSpend(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	from := newFundedAccount(t, stg, "alice", "USD", "100")
	to := newFundedAccount(t, stg, "bob", "USD", "")

	// two concurrent transfers of 60 against a balance of 100: exactly
	// one must win
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = stg.CreateTransfer(storage.TransferParams{
				UserID:      "alice",
				FromAddress: from.SystemAddress,
				ToAddress:   to.SystemAddress,
				Amount:      types.MustParseAmount("60"),
				Currency:    "USD",
			})
		}(i)
	}
	wg.Wait()

	okCount := 0
	for _, err := range errs {
		if err == nil {
			okCount++
		} else {
			c.Assert(err, qt.ErrorIs, storage.ErrInsufficientFunds)
		}
	}
	c.Assert(okCount, qt.Equals, 1)

	sender, err := stg.AccountByAddress(from.SystemAddress)
	c.Assert(err, qt.IsNil)
	c.Assert(sender.Locked.String(), qt.Equals, "60")
	c.Assert(sender.Nonce, qt.Equals, uint64(1))
}

func TestExecuteTransfer(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	from := newFundedAccount(t, stg, "alice", "USD", "100")
	to := newFundedAccount(t, stg, "bob", "USD", "10")

	tx, err := stg.CreateTransfer(storage.TransferParams{
		UserID:      "alice",
		FromAddress: from.SystemAddress,
		ToAddress:   to.SystemAddress,
		Amount:      types.MustParseAmount("60"),
		Currency:    "USD",
	})
	c.Assert(err, qt.IsNil)

	got, err := stg.ExecuteTransfer(tx.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.IsNotNil)
	c.Assert(got.Status, qt.Equals, types.TxStatusProcessing)

	sender, err := stg.AccountByAddress(from.SystemAddress)
	c.Assert(err, qt.IsNil)
	c.Assert(sender.Balance.String(), qt.Equals, "40")
	c.Assert(sender.Locked, qt.Equals, types.Amount(0))

	recipient, err := stg.AccountByAddress(to.SystemAddress)
	c.Assert(err, qt.IsNil)
	c.Assert(recipient.Balance.String(), qt.Equals, "70")

	// redelivery: already PROCESSING, no double movement
	again, err := stg.ExecuteTransfer(tx.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.IsNotNil)
	c.Assert(again.Status, qt.Equals, types.TxStatusProcessing)

	sender, err = stg.AccountByAddress(from.SystemAddress)
	c.Assert(err, qt.IsNil)
	c.Assert(sender.Balance.String(), qt.Equals, "40")

	_, err = stg.ExecuteTransfer("no-such-id")
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)
}

func TestFailTransferRevertsLock(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	from := newFundedAccount(t, stg, "alice", "USD", "100")
	to := newFundedAccount(t, stg, "bob", "USD", "")

	tx, err := stg.CreateTransfer(storage.TransferParams{
		UserID:      "alice",
		FromAddress: from.SystemAddress,
		ToAddress:   to.SystemAddress,
		Amount:      types.MustParseAmount("25"),
		Currency:    "USD",
	})
	c.Assert(err, qt.IsNil)

	failed, err := stg.FailTransfer(tx.ID, "operator cancel", true)
	c.Assert(err, qt.IsNil)
	c.Assert(failed.Status, qt.Equals, types.TxStatusFailed)
	c.Assert(failed.FailureReason, qt.Equals, "operator cancel")

	sender, err := stg.AccountByAddress(from.SystemAddress)
	c.Assert(err, qt.IsNil)
	c.Assert(sender.Locked, qt.Equals, types.Amount(0))
	c.Assert(sender.Balance.String(), qt.Equals, "100")

	// a failed transaction is dropped by the executor
	got, err := stg.ExecuteTransfer(tx.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.IsNil)

	// failing again is a no-op
	again, err := stg.FailTransfer(tx.ID, "other reason", true)
	c.Assert(err, qt.IsNil)
	c.Assert(again.FailureReason, qt.Equals, "operator cancel")
}

func TestSealBlock(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	from := newFundedAccount(t, stg, "alice", "USD", "100")
	to := newFundedAccount(t, stg, "bob", "USD", "")

	var refs []types.TxRef
	for range 3 {
		tx, err := stg.CreateTransfer(storage.TransferParams{
			UserID:      "alice",
			FromAddress: from.SystemAddress,
			ToAddress:   to.SystemAddress,
			Amount:      types.MustParseAmount("10"),
			Currency:    "USD",
		})
		c.Assert(err, qt.IsNil)
		executed, err := stg.ExecuteTransfer(tx.ID)
		c.Assert(err, qt.IsNil)
		refs = append(refs, executed.Ref())
	}

	b, err := stg.SealBlock(refs, time.Now())
	c.Assert(err, qt.IsNil)
	c.Assert(b.Height, qt.Equals, uint64(0))
	c.Assert(b.TxCount(), qt.Equals, 3)

	// every transaction is confirmed and points at the block
	for _, ref := range refs {
		tx, err := stg.Transaction(ref.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(tx.Status, qt.Equals, types.TxStatusConfirmed)
		c.Assert(tx.Confirmed(), qt.IsTrue)
		c.Assert(tx.BlockID, qt.Equals, b.ID)
		c.Assert(*tx.BlockHeight, qt.Equals, b.Height)
	}

	head, err := stg.LatestBlock()
	c.Assert(err, qt.IsNil)
	c.Assert(head.Hash, qt.Equals, b.Hash)

	byHash, err := stg.BlockByHash(b.Hash)
	c.Assert(err, qt.IsNil)
	c.Assert(byHash.ID, qt.Equals, b.ID)

	// sealing a non-processing transaction is an invariant violation
	_, err = stg.SealBlock(refs, time.Now())
	c.Assert(err, qt.ErrorIs, storage.ErrInvariant)
}

func TestBlockTimestampRoundTrip(t *testing.T) {
	c := qt.New(t)
	mdb, err := metadb.New(db.TypeInMemory, t.TempDir())
	c.Assert(err, qt.IsNil)
	stg := storage.New(mdb)
	t.Cleanup(stg.Close)

	from := newFundedAccount(t, stg, "alice", "USD", "100")
	to := newFundedAccount(t, stg, "bob", "USD", "")

	tx, err := stg.CreateTransfer(storage.TransferParams{
		UserID:      "alice",
		FromAddress: from.SystemAddress,
		ToAddress:   to.SystemAddress,
		Amount:      types.MustParseAmount("10"),
		Currency:    "USD",
	})
	c.Assert(err, qt.IsNil)
	executed, err := stg.ExecuteTransfer(tx.ID)
	c.Assert(err, qt.IsNil)

	// a wall time with a non-zero millisecond component, which is part
	// of the hashed block timestamp
	sealedAt := time.Date(2025, 6, 1, 12, 0, 0, 123*int(time.Millisecond), time.UTC)
	b, err := stg.SealBlock([]types.TxRef{executed.Ref()}, sealedAt)
	c.Assert(err, qt.IsNil)
	c.Assert(b.Timestamp.Equal(sealedAt), qt.IsTrue)

	// a cache-cold instance over the same database must read back the
	// exact timestamp, or the stored hash no longer matches
	cold := storage.New(mdb)
	got, err := cold.BlockByHeight(0)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Timestamp.Equal(sealedAt), qt.IsTrue)
	c.Assert(got.Hash, qt.Equals, b.Hash)

	height, err := cold.VerifyChain()
	c.Assert(err, qt.IsNil)
	c.Assert(height, qt.Equals, uint64(0))
}

func TestSealBlockChaining(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	from := newFundedAccount(t, stg, "alice", "USD", "100")
	to := newFundedAccount(t, stg, "bob", "USD", "")

	seal := func() *types.Block {
		tx, err := stg.CreateTransfer(storage.TransferParams{
			UserID:      "alice",
			FromAddress: from.SystemAddress,
			ToAddress:   to.SystemAddress,
			Amount:      types.MustParseAmount("1"),
			Currency:    "USD",
		})
		c.Assert(err, qt.IsNil)
		executed, err := stg.ExecuteTransfer(tx.ID)
		c.Assert(err, qt.IsNil)
		b, err := stg.SealBlock([]types.TxRef{executed.Ref()}, time.Now())
		c.Assert(err, qt.IsNil)
		return b
	}

	b0 := seal()
	b1 := seal()
	b2 := seal()
	c.Assert(b1.PreviousHash, qt.Equals, b0.Hash)
	c.Assert(b2.PreviousHash, qt.Equals, b1.Hash)
	c.Assert(b2.Height, qt.Equals, uint64(2))

	height, err := stg.VerifyChain()
	c.Assert(err, qt.IsNil)
	c.Assert(height, qt.Equals, uint64(2))
}

func TestStatusScans(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	stg.SetNowFunc(func() time.Time { return base })

	from := newFundedAccount(t, stg, "alice", "USD", "100")
	to := newFundedAccount(t, stg, "bob", "USD", "")

	old, err := stg.CreateTransfer(storage.TransferParams{
		UserID:      "alice",
		FromAddress: from.SystemAddress,
		ToAddress:   to.SystemAddress,
		Amount:      types.MustParseAmount("1"),
		Currency:    "USD",
	})
	c.Assert(err, qt.IsNil)

	stg.SetNowFunc(func() time.Time { return base.Add(time.Minute) })
	fresh, err := stg.CreateTransfer(storage.TransferParams{
		UserID:      "alice",
		FromAddress: from.SystemAddress,
		ToAddress:   to.SystemAddress,
		Amount:      types.MustParseAmount("1"),
		Currency:    "USD",
	})
	c.Assert(err, qt.IsNil)

	stale, err := stg.PendingOlderThan(30*time.Second, base.Add(time.Minute))
	c.Assert(err, qt.IsNil)
	c.Assert(stale, qt.HasLen, 1)
	c.Assert(stale[0].ID, qt.Equals, old.ID)

	// move the old one to PROCESSING and scan for stuck
	_, err = stg.ExecuteTransfer(old.ID)
	c.Assert(err, qt.IsNil)

	stuck, err := stg.StuckProcessing(30*time.Second, base.Add(time.Minute))
	c.Assert(err, qt.IsNil)
	c.Assert(stuck, qt.HasLen, 1)
	c.Assert(stuck[0].ID, qt.Equals, old.ID)

	_ = fresh
}
