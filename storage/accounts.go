package storage

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/openvault/ledger-node/types"
	"github.com/openvault/ledger-node/util"
)

// systemAddressBytes is the entropy of an account handle (acc_<hex>).
const systemAddressBytes = 16

var currencyRe = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// NormalizeCurrency uppercases and validates a currency code.
func NormalizeCurrency(currency string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if !currencyRe.MatchString(c) {
		return "", fmt.Errorf("%w: invalid currency code %q", ErrCurrencyMismatch, currency)
	}
	return c, nil
}

// CreateWallet creates a wallet owned by userID.
func (s *Storage) CreateWallet(userID string) (*types.Wallet, error) {
	if userID == "" {
		return nil, fmt.Errorf("wallet requires a user id")
	}
	w := &types.Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}
	wtx := s.db.WriteTx()
	defer wtx.Discard()
	if err := setArtifact(wtx, walletPrefix, []byte(w.ID), w); err != nil {
		return nil, err
	}
	if err := setIndex(wtx, walletUserPrefix, []byte(userID+"/"+w.ID), []byte(w.ID)); err != nil {
		return nil, err
	}
	if err := wtx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

// Wallet returns a wallet by id.
func (s *Storage) Wallet(id string) (*types.Wallet, error) {
	w := &types.Wallet{}
	if err := getArtifact(s.db, walletPrefix, []byte(id), w); err != nil {
		return nil, err
	}
	return w, nil
}

// WalletsByUser lists the wallets owned by userID.
func (s *Storage) WalletsByUser(userID string) ([]*types.Wallet, error) {
	var ids []string
	prefix := []byte(userID + "/")
	err := s.db.Iterate(append(append([]byte{}, walletUserPrefix...), prefix...), func(_, v []byte) bool {
		ids = append(ids, string(v))
		return true
	})
	if err != nil {
		return nil, err
	}
	wallets := make([]*types.Wallet, 0, len(ids))
	for _, id := range ids {
		w, err := s.Wallet(id)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

// CreateAccount creates the currency-scoped account of a wallet. A
// wallet holds at most one account per currency; a second creation for
// the same (wallet, currency) pair fails with ErrKeyAlreadyExists.
func (s *Storage) CreateAccount(walletID, currency string) (*types.Account, error) {
	cur, err := NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	if _, err := s.Wallet(walletID); err != nil {
		return nil, fmt.Errorf("wallet %s: %w", walletID, err)
	}

	acc := &types.Account{
		ID:            uuid.NewString(),
		SystemAddress: "acc_" + util.RandomHex(systemAddressBytes),
		WalletID:      walletID,
		Currency:      cur,
		CreatedAt:     s.now().UTC(),
	}

	wtx := s.db.WriteTx()
	defer wtx.Discard()

	wcKey := []byte(walletID + "/" + cur)
	if _, err := getIndex(wtx, accountWCPrefix, wcKey); err == nil {
		return nil, fmt.Errorf("%w: wallet %s already has a %s account", ErrKeyAlreadyExists, walletID, cur)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, err := getIndex(wtx, accountAddrPrefix, []byte(acc.SystemAddress)); err == nil {
		return nil, fmt.Errorf("%w: address collision", ErrKeyAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := setArtifact(wtx, accountPrefix, []byte(acc.ID), acc); err != nil {
		return nil, err
	}
	if err := setIndex(wtx, accountAddrPrefix, []byte(acc.SystemAddress), []byte(acc.ID)); err != nil {
		return nil, err
	}
	if err := setIndex(wtx, accountWCPrefix, wcKey, []byte(acc.ID)); err != nil {
		return nil, err
	}
	if err := wtx.Commit(); err != nil {
		return nil, err
	}
	return acc, nil
}

// Account returns an account by id.
func (s *Storage) Account(id string) (*types.Account, error) {
	return s.account(s.db, id)
}

func (s *Storage) account(r interface {
	Get(key []byte) ([]byte, error)
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}, id string,
) (*types.Account, error) {
	acc := &types.Account{}
	if err := getArtifact(r, accountPrefix, []byte(id), acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// AccountByAddress resolves a system address to its account.
func (s *Storage) AccountByAddress(addr string) (*types.Account, error) {
	id, err := getIndex(s.db, accountAddrPrefix, []byte(addr))
	if err != nil {
		return nil, err
	}
	return s.Account(string(id))
}

// AccountOwner returns the user id owning the given account.
func (s *Storage) AccountOwner(acc *types.Account) (string, error) {
	w, err := s.Wallet(acc.WalletID)
	if err != nil {
		return "", err
	}
	return w.UserID, nil
}

// AccountsByWallet lists the accounts of a wallet.
func (s *Storage) AccountsByWallet(walletID string) ([]*types.Account, error) {
	var ids []string
	prefix := []byte(walletID + "/")
	err := s.db.Iterate(append(append([]byte{}, accountWCPrefix...), prefix...), func(_, v []byte) bool {
		ids = append(ids, string(v))
		return true
	})
	if err != nil {
		return nil, err
	}
	accounts := make([]*types.Account, 0, len(ids))
	for _, id := range ids {
		acc, err := s.Account(id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// AccountsByCurrency lists every account holding the given currency.
// Used by audit tooling; it scans the whole account namespace.
func (s *Storage) AccountsByCurrency(currency string) ([]*types.Account, error) {
	cur, err := NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	var accounts []*types.Account
	err = s.db.Iterate(accountPrefix, func(_, v []byte) bool {
		acc := &types.Account{}
		if err := DecodeArtifact(v, acc); err != nil {
			return true
		}
		if acc.Currency == cur {
			accounts = append(accounts, acc)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// Deposit credits an account balance. This is the only balance source
// in the system; transfers conserve the per-currency total.
func (s *Storage) Deposit(addr string, amount types.Amount) (*types.Account, error) {
	if !amount.Positive() {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrInvariant)
	}
	unlock := s.accountLocks.Lock(addr)
	defer unlock()

	wtx := s.db.WriteTx()
	defer wtx.Discard()

	id, err := getIndex(wtx, accountAddrPrefix, []byte(addr))
	if err != nil {
		return nil, err
	}
	acc, err := s.account(wtx, string(id))
	if err != nil {
		return nil, err
	}
	acc.Balance, err = acc.Balance.Add(amount)
	if err != nil {
		return nil, err
	}
	if err := setArtifact(wtx, accountPrefix, []byte(acc.ID), acc); err != nil {
		return nil, err
	}
	if err := wtx.Commit(); err != nil {
		return nil, err
	}
	return acc, nil
}
