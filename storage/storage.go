/*
Package storage provides the persistent account store for the ledger
engine. It organizes a key-value database into prefixed namespaces and
owns every transactional mutation of accounts, transactions and blocks.

# Storage Organization

## Wallets and accounts
  - w/  : walletID → Wallet
  - wu/ : userID + "/" + walletID → walletID (ownership index)
  - a/  : accountID → Account
  - aa/ : systemAddress → accountID (global unique handle)
  - ac/ : walletID + "/" + currency → accountID (one account per
    wallet and currency)

## Transactions
  - t/  : txID → Transaction
  - th/ : systemHash → txID
  - ta/ : accountID + "/" + createdAt + txID → txID (history index,
    both endpoints)

## Blocks
  - bk/ : height (8-byte big endian) → Block
  - bh/ : blockHash → height
  - meta/head : latest height

Row-level pessimistic locking is provided by a keyed mutex per system
address: every mutation locks the addresses it touches (in sorted
order) before opening its write transaction, so concurrent intakes on
the same sender serialize and the balance checks cannot race.
*/
package storage

import (
	"encoding/binary"
	"errors"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/openvault/ledger-node/db"
	"github.com/openvault/ledger-node/db/prefixeddb"
	"github.com/openvault/ledger-node/log"
	"github.com/openvault/ledger-node/types"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrKeyAlreadyExists is returned on unique constraint violations.
	ErrKeyAlreadyExists = errors.New("key already exists")
	// ErrForbidden is returned when the sender account is not owned by
	// the submitting user.
	ErrForbidden = errors.New("account not owned by user")
	// ErrInsufficientFunds is returned when available balance does not
	// cover the transfer amount.
	ErrInsufficientFunds = errors.New("insufficient available balance")
	// ErrCurrencyMismatch is returned when a transfer currency does not
	// match both endpoint accounts.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrInvariant is returned when a mutation would break a ledger
	// invariant (negative balance, locked above balance, bad status
	// transition).
	ErrInvariant = errors.New("ledger invariant violated")
)

// Prefixes
var (
	walletPrefix       = []byte("w/")
	walletUserPrefix   = []byte("wu/")
	accountPrefix      = []byte("a/")
	accountAddrPrefix  = []byte("aa/")
	accountWCPrefix    = []byte("ac/")
	txPrefix           = []byte("t/")
	txHashPrefix       = []byte("th/")
	txAccountPrefix    = []byte("ta/")
	blockPrefix        = []byte("bk/")
	blockHashPrefix    = []byte("bh/")
	headKey            = []byte("meta/head")
	blockCacheCapacity = 512
)

// Storage manages the ledger rows with per-address pessimistic locks.
type Storage struct {
	db           db.Database
	accountLocks *keyedMutex
	blockLock    sync.Mutex // serializes block sealing
	blockCache   *lru.Cache[uint64, *types.Block]

	// now is replaceable so tests control row timestamps.
	now func() time.Time
}

// New creates a new Storage instance over the given database.
func New(database db.Database) *Storage {
	cache, err := lru.New[uint64, *types.Block](blockCacheCapacity)
	if err != nil {
		log.Fatalf("failed to create block cache: %v", err)
	}
	return &Storage{
		db:           database,
		accountLocks: newKeyedMutex(),
		blockCache:   cache,
		now:          time.Now,
	}
}

// SetNowFunc replaces the clock used for row timestamps. Test helper.
func (s *Storage) SetNowFunc(now func() time.Time) {
	s.now = now
}

// Close closes the underlying database.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close storage", "error", err.Error())
	}
}

// getArtifact retrieves and decodes a row from a prefixed namespace.
func getArtifact(r db.Reader, prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(r, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return DecodeArtifact(data, out)
}

// setArtifact encodes and stores a row within an open transaction.
func setArtifact(wtx db.WriteTx, prefix, key []byte, artifact any) error {
	data, err := EncodeArtifact(artifact)
	if err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(wtx, prefix).Set(key, data)
}

// setIndex stores a plain index entry within an open transaction.
func setIndex(wtx db.WriteTx, prefix, key, value []byte) error {
	return prefixeddb.NewPrefixedWriteTx(wtx, prefix).Set(key, value)
}

// getIndex retrieves a plain index entry.
func getIndex(r db.Reader, prefix, key []byte) ([]byte, error) {
	v, err := prefixeddb.NewPrefixedReader(r, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func heightKey(h uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, h)
	return k
}

// keyedMutex provides a mutex per key, locking multiple keys in sorted
// order to avoid lock-order inversions.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires the mutexes for all keys (deduplicated, sorted) and
// returns the release function.
func (k *keyedMutex) Lock(keys ...string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			uniq = append(uniq, key)
		}
	}
	sort.Strings(uniq)
	held := make([]*sync.Mutex, 0, len(uniq))
	for _, key := range uniq {
		m := k.get(key)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
