// Package block builds the hash-linked blocks that seal confirmed
// transactions into the chain. Everything here is pure computation; the
// storage layer is responsible for reading the current head and
// committing the result atomically.
package block

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/openvault/ledger-node/types"
)

// GenesisPreviousHash is the previous-hash placeholder hashed into the
// genesis block, which has no predecessor.
const GenesisPreviousHash = "GENESIS_BLOCK_PREV_HASH_0000000000000"

// timestampLayout is the ISO-8601 millisecond form the timestamp is
// serialized with when hashed.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// MerkleRoot computes the commitment over a set of transaction system
// hashes. The input is sorted ascending first, so the root is invariant
// under permutation of the batch. Nodes pair up left to right; an odd
// node at any level is paired with itself. An empty set yields
// SHA256("").
func MerkleRoot(hashes []string) string {
	if len(hashes) == 0 {
		sum := sha256.Sum256(nil)
		return hex.EncodeToString(sum[:])
	}
	level := sortedHashes(hashes)
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			sum := sha256.Sum256([]byte(level[i] + level[i+1]))
			next = append(next, hex.EncodeToString(sum[:]))
		}
		level = next
	}
	return level[0]
}

// Hash computes the block hash over the height, the ISO-8601 timestamp,
// the previous block hash (or the genesis placeholder) and the sorted
// system hashes, concatenated in that order.
func Hash(height uint64, timestamp time.Time, previousHash string, sorted []string) string {
	prev := previousHash
	if prev == "" {
		prev = GenesisPreviousHash
	}
	payload := strconv.FormatUint(height, 10) + timestamp.UTC().Format(timestampLayout) + prev
	for _, h := range sorted {
		payload += h
	}
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Build assembles the next block after latest (nil for genesis) sealing
// the given transaction refs. The refs order does not matter: hashes
// are sorted before committing to them.
func Build(latest *types.Block, refs []types.TxRef, now time.Time) (*types.Block, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("cannot build a block with no transactions")
	}
	var height uint64
	prevHash := ""
	if latest != nil {
		height = latest.Height + 1
		prevHash = latest.Hash
	}
	hashes := make([]string, len(refs))
	for i, ref := range refs {
		hashes[i] = ref.SystemHash
	}
	sorted := sortedHashes(hashes)
	ts := now.UTC().Truncate(time.Millisecond)
	return &types.Block{
		ID:           uuid.NewString(),
		Height:       height,
		Hash:         Hash(height, ts, prevHash, sorted),
		PreviousHash: prevHash,
		Timestamp:    ts,
		MerkleRoot:   MerkleRoot(sorted),
		TxHashes:     sorted,
	}, nil
}

// Verify recomputes the block hash and merkle root from the stored
// fields and checks them against the stored values.
func Verify(b *types.Block) error {
	if got := MerkleRoot(b.TxHashes); got != b.MerkleRoot {
		return fmt.Errorf("merkle root mismatch at height %d: stored %s computed %s", b.Height, b.MerkleRoot, got)
	}
	if got := Hash(b.Height, b.Timestamp, b.PreviousHash, sortedHashes(b.TxHashes)); got != b.Hash {
		return fmt.Errorf("block hash mismatch at height %d: stored %s computed %s", b.Height, b.Hash, got)
	}
	return nil
}

func sortedHashes(hashes []string) []string {
	out := make([]string, len(hashes))
	copy(out, hashes)
	sort.Strings(out)
	return out
}
