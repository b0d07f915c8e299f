package types

import "time"

// Block is an immutable, height-ordered batch of confirmed
// transactions. PreviousHash is empty only for the genesis block
// (height 0); for every other block it equals the hash of the block at
// height-1.
type Block struct {
	ID           string    `json:"id" cbor:"1,keyasint"`
	Height       uint64    `json:"height" cbor:"2,keyasint"`
	Hash         string    `json:"blockHash" cbor:"3,keyasint"`
	PreviousHash string    `json:"previousBlockHash,omitempty" cbor:"4,keyasint,omitempty"`
	Timestamp    time.Time `json:"timestamp" cbor:"5,keyasint"`
	MerkleRoot   string    `json:"merkleRoot" cbor:"6,keyasint"`

	// TxHashes holds the system hashes of the sealed transactions in
	// ascending lexicographic order (the order they were hashed in).
	TxHashes []string `json:"txHashes" cbor:"7,keyasint"`
}

// TxCount returns the number of transactions sealed in the block.
func (b *Block) TxCount() int { return len(b.TxHashes) }
