package block

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/openvault/ledger-node/types"
)

func refs(hashes ...string) []types.TxRef {
	out := make([]types.TxRef, len(hashes))
	for i, h := range hashes {
		out[i] = types.TxRef{ID: "id-" + h, SystemHash: h}
	}
	return out
}

func TestMerkleRootPermutationInvariance(t *testing.T) {
	c := qt.New(t)

	a := MerkleRoot([]string{"txn_a", "txn_b", "txn_c"})
	b := MerkleRoot([]string{"txn_c", "txn_a", "txn_b"})
	c.Assert(a, qt.Equals, b)
}

func TestMerkleRootSingleAndEmpty(t *testing.T) {
	c := qt.New(t)

	// a single hash is its own root
	c.Assert(MerkleRoot([]string{"txn_only"}), qt.Equals, "txn_only")

	empty := sha256.Sum256(nil)
	c.Assert(MerkleRoot(nil), qt.Equals, hex.EncodeToString(empty[:]))
}

func TestMerkleRootOddDuplication(t *testing.T) {
	c := qt.New(t)

	// with three leaves the last is paired with itself
	sorted := []string{"a", "b", "c"}
	ab := sha256.Sum256([]byte("ab"))
	cc := sha256.Sum256([]byte("cc"))
	root := sha256.Sum256([]byte(hex.EncodeToString(ab[:]) + hex.EncodeToString(cc[:])))
	c.Assert(MerkleRoot(sorted), qt.Equals, hex.EncodeToString(root[:]))
}

func TestBuildGenesis(t *testing.T) {
	c := qt.New(t)

	now := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	b, err := Build(nil, refs("txn_x", "txn_y"), now)
	c.Assert(err, qt.IsNil)
	c.Assert(b.Height, qt.Equals, uint64(0))
	c.Assert(b.PreviousHash, qt.Equals, "")
	c.Assert(b.Timestamp, qt.Equals, now.Truncate(time.Millisecond))
	c.Assert(b.TxHashes, qt.DeepEquals, []string{"txn_x", "txn_y"})
	c.Assert(Verify(b), qt.IsNil)

	// the genesis placeholder is hashed in place of the empty prev hash
	c.Assert(b.Hash, qt.Equals, Hash(0, b.Timestamp, GenesisPreviousHash, b.TxHashes))
}

func TestBuildChaining(t *testing.T) {
	c := qt.New(t)

	now := time.Now()
	genesis, err := Build(nil, refs("txn_1"), now)
	c.Assert(err, qt.IsNil)

	next, err := Build(genesis, refs("txn_3", "txn_2"), now.Add(time.Second))
	c.Assert(err, qt.IsNil)
	c.Assert(next.Height, qt.Equals, uint64(1))
	c.Assert(next.PreviousHash, qt.Equals, genesis.Hash)
	c.Assert(next.TxHashes, qt.DeepEquals, []string{"txn_2", "txn_3"})
	c.Assert(Verify(next), qt.IsNil)
}

func TestBuildEmptyBatch(t *testing.T) {
	c := qt.New(t)

	_, err := Build(nil, nil, time.Now())
	c.Assert(err, qt.IsNotNil)
}

func TestVerifyDetectsTampering(t *testing.T) {
	c := qt.New(t)

	b, err := Build(nil, refs("txn_a", "txn_b"), time.Now())
	c.Assert(err, qt.IsNil)

	tampered := *b
	tampered.TxHashes = []string{"txn_a", "txn_z"}
	c.Assert(Verify(&tampered), qt.IsNotNil)

	tampered = *b
	tampered.PreviousHash = "bogus"
	c.Assert(Verify(&tampered), qt.IsNotNil)
}
