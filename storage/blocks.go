package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/openvault/ledger-node/block"
	"github.com/openvault/ledger-node/db"
	"github.com/openvault/ledger-node/log"
	"github.com/openvault/ledger-node/types"
)

// LatestBlock returns the chain head, or ErrNotFound before genesis.
func (s *Storage) LatestBlock() (*types.Block, error) {
	head, err := s.db.Get(headKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.BlockByHeight(binary.BigEndian.Uint64(head))
}

// BlockByHeight returns the block sealed at the given height.
func (s *Storage) BlockByHeight(height uint64) (*types.Block, error) {
	if b, ok := s.blockCache.Get(height); ok {
		return b, nil
	}
	b := &types.Block{}
	if err := getArtifact(s.db, blockPrefix, heightKey(height), b); err != nil {
		return nil, err
	}
	s.blockCache.Add(height, b)
	return b, nil
}

// BlockByHash resolves a block hash to its block.
func (s *Storage) BlockByHash(hash string) (*types.Block, error) {
	v, err := getIndex(s.db, blockHashPrefix, []byte(hash))
	if err != nil {
		return nil, err
	}
	return s.BlockByHeight(binary.BigEndian.Uint64(v))
}

// SealBlock builds the next block over the given PROCESSING
// transactions and commits it together with their CONFIRMED flips in
// one write transaction. Sealing is serialized by a dedicated lock so
// the head read and the head write cannot interleave.
func (s *Storage) SealBlock(refs []types.TxRef, now time.Time) (*types.Block, error) {
	s.blockLock.Lock()
	defer s.blockLock.Unlock()

	latest, err := s.LatestBlock()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	b, err := block.Build(latest, refs, now)
	if err != nil {
		return nil, err
	}

	wtx := s.db.WriteTx()
	defer wtx.Discard()

	for _, ref := range refs {
		tx := &types.Transaction{}
		if err := getArtifact(wtx, txPrefix, []byte(ref.ID), tx); err != nil {
			return nil, fmt.Errorf("sealing transaction %s: %w", ref.ID, err)
		}
		if tx.Status != types.TxStatusProcessing {
			return nil, fmt.Errorf("%w: transaction %s is %s, expected processing", ErrInvariant, tx.ID, tx.Status)
		}
		tx.Status = types.TxStatusConfirmed
		tx.BlockID = b.ID
		height := b.Height
		tx.BlockHeight = &height
		if err := s.putTransaction(wtx, tx, false); err != nil {
			return nil, err
		}
	}

	if err := setArtifact(wtx, blockPrefix, heightKey(b.Height), b); err != nil {
		return nil, err
	}
	if err := setIndex(wtx, blockHashPrefix, []byte(b.Hash), heightKey(b.Height)); err != nil {
		return nil, err
	}
	if err := wtx.Set(headKey, heightKey(b.Height)); err != nil {
		return nil, err
	}
	if err := wtx.Commit(); err != nil {
		return nil, err
	}
	s.blockCache.Add(b.Height, b)
	log.Infow("block sealed", "height", b.Height, "hash", b.Hash, "txCount", b.TxCount())
	return b, nil
}

// VerifyChain walks the chain from genesis to head, recomputing every
// block hash and merkle root and checking the previous-hash links. It
// returns the verified head height, or an error naming the first bad
// block.
func (s *Storage) VerifyChain() (uint64, error) {
	latest, err := s.LatestBlock()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	prevHash := ""
	for h := uint64(0); h <= latest.Height; h++ {
		b, err := s.BlockByHeight(h)
		if err != nil {
			return 0, fmt.Errorf("missing block at height %d: %w", h, err)
		}
		if err := block.Verify(b); err != nil {
			return 0, err
		}
		if b.PreviousHash != prevHash {
			return 0, fmt.Errorf("broken link at height %d: previous hash %s, head of %d is %s",
				h, b.PreviousHash, h-1, prevHash)
		}
		prevHash = b.Hash
	}
	return latest.Height, nil
}
