// Package db abstracts the key-value database used for persistence.
// Implementations must provide atomic write transactions with
// read-your-writes semantics; concurrent transactions that conflict on
// the same keys must fail at commit with ErrConflict.
package db

import "errors"

var (
	// ErrKeyNotFound is returned when the key is not found in the database.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned on commit when a transaction read or wrote
	// keys that were modified concurrently.
	ErrConflict = errors.New("transaction conflict")
	// ErrTxnTooBig is returned when the write transaction exceeds the
	// backend's size limits.
	ErrTxnTooBig = errors.New("transaction too big")
)

// Supported database backends for metadb.New.
const (
	TypePebble   = "pebble"
	TypeInMemory = "inmemory"
)

// Options defines generic parameters for the database backends.
type Options struct {
	Path string
}

// Database wraps a key-value store with atomic write transactions.
type Database interface {
	Reader
	// WriteTx starts a new write transaction.
	WriteTx() WriteTx
	// Close closes the database.
	Close() error
	// Compact triggers a backend compaction, if supported.
	Compact() error
}

// Reader is the read half of a database or transaction.
type Reader interface {
	// Get retrieves the value for the given key. Returns ErrKeyNotFound
	// if the key does not exist.
	Get(key []byte) ([]byte, error)
	// Iterate calls callback with all key-value pairs whose key starts
	// with prefix, in lexicographic key order. The iteration stops when
	// the callback returns false. The slices passed to the callback must
	// not be retained.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}

// WriteTx is an atomic read-write transaction. It is not safe for
// concurrent use; either Commit or Discard must be called once.
type WriteTx interface {
	Reader
	// Set adds a key-value pair, visible to subsequent reads within the
	// transaction and persisted at Commit.
	Set(key, value []byte) error
	// Delete removes a key within the transaction.
	Delete(key []byte) error
	// Apply merges the writes of another transaction into this one.
	Apply(WriteTx) error
	// Commit atomically persists all writes.
	Commit() error
	// Discard drops the transaction. Safe to call after Commit.
	Discard()
}
