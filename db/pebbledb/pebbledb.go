// Package pebbledb implements db.Database on top of cockroachdb/pebble.
// Write transactions are indexed pebble batches, so reads within a
// transaction observe its own writes. Cross-transaction conflict
// detection is not provided by pebble; callers that need serialized
// access to a key range (the storage layer does) hold their own locks
// around the transaction.
package pebbledb

import (
	"errors"
	"fmt"
	"io"

	"github.com/cockroachdb/pebble"

	"github.com/openvault/ledger-node/db"
)

// Database implements db.Database with a pebble store.
type Database struct {
	pdb *pebble.DB
}

var _ db.Database = (*Database)(nil)

// New opens (or creates) a pebble database at opts.Path.
func New(opts db.Options) (*Database, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("pebbledb requires a path")
	}
	pdb, err := pebble.Open(opts.Path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", opts.Path, err)
	}
	return &Database{pdb: pdb}, nil
}

func (d *Database) Close() error {
	return d.pdb.Close()
}

func (d *Database) Compact() error {
	// Compact the whole keyspace.
	return d.pdb.Compact([]byte{0x00}, []byte{0xff, 0xff, 0xff, 0xff}, true)
}

func (d *Database) Get(key []byte) ([]byte, error) {
	return get(d.pdb, key)
}

func (d *Database) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iterate(d.pdb, prefix, callback)
}

func (d *Database) WriteTx() db.WriteTx {
	return &WriteTx{batch: d.pdb.NewIndexedBatch()}
}

// WriteTx wraps an indexed pebble batch.
type WriteTx struct {
	batch *pebble.Batch
	done  bool
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	return get(tx.batch, key)
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iterate(tx.batch, prefix, callback)
}

func (tx *WriteTx) Set(key, value []byte) error {
	return tx.batch.Set(key, value, nil)
}

func (tx *WriteTx) Delete(key []byte) error {
	return tx.batch.Delete(key, nil)
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	o, ok := other.(*WriteTx)
	if !ok {
		return fmt.Errorf("can only apply a pebbledb.WriteTx")
	}
	return tx.batch.Apply(o.batch, nil)
}

func (tx *WriteTx) Commit() error {
	if tx.done {
		return fmt.Errorf("cannot commit pebble tx: already committed or discarded")
	}
	tx.done = true
	return tx.batch.Commit(pebble.Sync)
}

func (tx *WriteTx) Discard() {
	if tx.done {
		return
	}
	tx.done = true
	if err := tx.batch.Close(); err != nil {
		// Nothing the caller can do about it.
		_ = err
	}
}

type pebbleReader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

func get(r pebbleReader, key []byte) ([]byte, error) {
	value, closer, err := r.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, err
	}
	out := make([]byte, len(value))
	copy(out, value)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func iterate(r pebbleReader, prefix []byte, callback func(key, value []byte) bool) error {
	iter, err := r.NewIter(prefixIterOptions(prefix))
	if err != nil {
		return err
	}
	defer func() { _ = iter.Close() }()
	for iter.First(); iter.Valid(); iter.Next() {
		if !callback(iter.Key(), iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// prefixIterOptions bounds an iterator to keys starting with prefix.
func prefixIterOptions(prefix []byte) *pebble.IterOptions {
	if len(prefix) == 0 {
		return &pebble.IterOptions{}
	}
	return &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	}
}

func keyUpperBound(b []byte) []byte {
	end := make([]byte, len(b))
	copy(end, b)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil // no upper bound: prefix is all 0xff
}
