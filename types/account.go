package types

import "time"

// Wallet groups the currency-scoped accounts of a single user. Key
// material and authentication live outside the ledger core; the wallet
// row only carries ownership.
type Wallet struct {
	ID        string    `json:"id" cbor:"1,keyasint"`
	UserID    string    `json:"userId" cbor:"2,keyasint"`
	CreatedAt time.Time `json:"createdAt" cbor:"3,keyasint"`
}

// Account is a currency-scoped balance owned by a wallet.
//
// Invariants, enforced by the storage layer on every mutation:
// Balance >= 0, Locked >= 0, Balance >= Locked, (WalletID, Currency)
// unique, SystemAddress globally unique.
type Account struct {
	ID            string    `json:"id" cbor:"1,keyasint"`
	SystemAddress string    `json:"systemAddress" cbor:"2,keyasint"`
	WalletID      string    `json:"walletId" cbor:"3,keyasint"`
	Currency      string    `json:"currency" cbor:"4,keyasint"`
	Balance       Amount    `json:"balance" cbor:"5,keyasint"`
	Locked        Amount    `json:"locked" cbor:"6,keyasint"`
	Nonce         uint64    `json:"nonce" cbor:"7,keyasint"`
	CreatedAt     time.Time `json:"createdAt" cbor:"8,keyasint"`
}

// Available returns the spendable part of the balance.
func (a *Account) Available() Amount {
	return a.Balance - a.Locked
}

// CheckInvariants verifies the account-level balance constraints.
func (a *Account) CheckInvariants() bool {
	return a.Balance >= 0 && a.Locked >= 0 && a.Balance >= a.Locked
}
