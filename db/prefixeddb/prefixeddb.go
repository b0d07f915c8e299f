// Package prefixeddb wraps a db.Database so that all keys are
// transparently namespaced under a fixed prefix.
package prefixeddb

import (
	"slices"

	"github.com/openvault/ledger-node/db"
)

// PrefixedDatabase namespaces an underlying database under a key prefix.
type PrefixedDatabase struct {
	db     db.Database
	prefix []byte
}

var _ db.Database = (*PrefixedDatabase)(nil)

// NewPrefixedDatabase returns a view of d where every key is prefixed.
func NewPrefixedDatabase(d db.Database, prefix []byte) *PrefixedDatabase {
	return &PrefixedDatabase{db: d, prefix: slices.Clone(prefix)}
}

func (d *PrefixedDatabase) Get(key []byte) ([]byte, error) {
	return d.db.Get(prefixKey(d.prefix, key))
}

func (d *PrefixedDatabase) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iteratePrefixed(d.db, d.prefix, prefix, callback)
}

func (d *PrefixedDatabase) WriteTx() db.WriteTx {
	return NewPrefixedWriteTx(d.db.WriteTx(), d.prefix)
}

// Close is a no-op: the underlying database owns its lifecycle.
func (d *PrefixedDatabase) Close() error { return nil }

func (d *PrefixedDatabase) Compact() error { return d.db.Compact() }

// NewPrefixedReader returns a read-only prefixed view over any reader.
func NewPrefixedReader(r db.Reader, prefix []byte) *PrefixedReader {
	return &PrefixedReader{r: r, prefix: slices.Clone(prefix)}
}

// PrefixedReader namespaces reads under a key prefix.
type PrefixedReader struct {
	r      db.Reader
	prefix []byte
}

var _ db.Reader = (*PrefixedReader)(nil)

func (r *PrefixedReader) Get(key []byte) ([]byte, error) {
	return r.r.Get(prefixKey(r.prefix, key))
}

func (r *PrefixedReader) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iteratePrefixed(r.r, r.prefix, prefix, callback)
}

// NewPrefixedWriteTx wraps an existing write transaction under a prefix.
func NewPrefixedWriteTx(tx db.WriteTx, prefix []byte) *PrefixedWriteTx {
	return &PrefixedWriteTx{tx: tx, prefix: slices.Clone(prefix)}
}

// PrefixedWriteTx namespaces a write transaction under a key prefix.
type PrefixedWriteTx struct {
	tx     db.WriteTx
	prefix []byte
}

var _ db.WriteTx = (*PrefixedWriteTx)(nil)

func (tx *PrefixedWriteTx) Get(key []byte) ([]byte, error) {
	return tx.tx.Get(prefixKey(tx.prefix, key))
}

func (tx *PrefixedWriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iteratePrefixed(tx.tx, tx.prefix, prefix, callback)
}

func (tx *PrefixedWriteTx) Set(key, value []byte) error {
	return tx.tx.Set(prefixKey(tx.prefix, key), value)
}

func (tx *PrefixedWriteTx) Delete(key []byte) error {
	return tx.tx.Delete(prefixKey(tx.prefix, key))
}

func (tx *PrefixedWriteTx) Apply(other db.WriteTx) error { return tx.tx.Apply(other) }

func (tx *PrefixedWriteTx) Commit() error { return tx.tx.Commit() }

func (tx *PrefixedWriteTx) Discard() { tx.tx.Discard() }

// Unwrap returns the underlying write transaction, so that multiple
// prefixed views can share a single atomic commit.
func (tx *PrefixedWriteTx) Unwrap() db.WriteTx { return tx.tx }

func prefixKey(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}

func iteratePrefixed(r db.Reader, base, prefix []byte, callback func(key, value []byte) bool) error {
	full := prefixKey(base, prefix)
	return r.Iterate(full, func(k, v []byte) bool {
		return callback(k[len(base):], v)
	})
}
