package types

import (
	"fmt"
	"strings"
	"time"
)

// TxStatus is the closed set of transaction states.
type TxStatus uint8

const (
	TxStatusPending TxStatus = iota
	TxStatusProcessing
	TxStatusConfirmed
	TxStatusFailed
	TxStatusCancelled
)

var txStatusNames = map[TxStatus]string{
	TxStatusPending:    "pending",
	TxStatusProcessing: "processing",
	TxStatusConfirmed:  "confirmed",
	TxStatusFailed:     "failed",
	TxStatusCancelled:  "cancelled",
}

// String returns the lowercase name of the status.
func (s TxStatus) String() string {
	if name, ok := txStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the status as its lowercase name.
func (s TxStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a status from its lowercase name.
func (s *TxStatus) UnmarshalJSON(data []byte) error {
	name := strings.Trim(string(data), `"`)
	for status, n := range txStatusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown transaction status %q", name)
}

// Terminal reports whether the status admits no further transitions.
func (s TxStatus) Terminal() bool {
	return s == TxStatusConfirmed || s == TxStatusFailed || s == TxStatusCancelled
}

// CanTransition reports whether the from -> to edge is part of the
// status lattice:
//
//	PENDING    -> PROCESSING | FAILED
//	PROCESSING -> CONFIRMED  | FAILED
//
// CANCELLED is reserved; PROCESSING -> PENDING is never allowed.
func CanTransition(from, to TxStatus) bool {
	switch from {
	case TxStatusPending:
		return to == TxStatusProcessing || to == TxStatusFailed
	case TxStatusProcessing:
		return to == TxStatusConfirmed || to == TxStatusFailed
	default:
		return false
	}
}

// TxType distinguishes ledger operations.
type TxType string

const (
	TxTypeTransfer TxType = "TRANSFER"
	TxTypeDeposit  TxType = "DEPOSIT"
)

// Transaction is a double-entry transfer between two accounts of the
// same currency. AccountNonce is the sender's nonce captured at
// submission; it is recorded for ordering audits but not enforced at
// execution.
type Transaction struct {
	ID            string   `json:"id" cbor:"1,keyasint"`
	SystemHash    string   `json:"systemHash" cbor:"2,keyasint"`
	FromAccountID string   `json:"fromAccountId" cbor:"3,keyasint"`
	ToAccountID   string   `json:"toAccountId" cbor:"4,keyasint"`
	FromAddress   string   `json:"fromAddress" cbor:"5,keyasint"`
	ToAddress     string   `json:"toAddress" cbor:"6,keyasint"`
	Amount        Amount   `json:"amount" cbor:"7,keyasint"`
	Fee           Amount   `json:"fee" cbor:"8,keyasint"`
	Currency      string   `json:"currency" cbor:"9,keyasint"`
	Status        TxStatus `json:"status" cbor:"10,keyasint"`
	Type          TxType   `json:"type" cbor:"11,keyasint"`
	AccountNonce  uint64   `json:"accountNonce" cbor:"12,keyasint"`
	Description   string   `json:"description,omitempty" cbor:"13,keyasint,omitempty"`
	BlockID       string   `json:"blockId,omitempty" cbor:"14,keyasint,omitempty"`
	BlockHeight   *uint64  `json:"blockHeight,omitempty" cbor:"15,keyasint,omitempty"`
	FailureReason string   `json:"failureReason,omitempty" cbor:"16,keyasint,omitempty"`

	CreatedAt time.Time `json:"createdAt" cbor:"17,keyasint"`
}

// Confirmed reports whether the transaction is sealed into a block.
func (t *Transaction) Confirmed() bool {
	return t.Status == TxStatusConfirmed && t.BlockID != "" && t.BlockHeight != nil
}

// Ref returns the block-builder reference for this transaction.
func (t *Transaction) Ref() TxRef {
	return TxRef{ID: t.ID, SystemHash: t.SystemHash}
}

// TxRef is the minimal projection the block builder needs.
type TxRef struct {
	ID         string
	SystemHash string
}
