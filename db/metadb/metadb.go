// Package metadb constructs a db.Database by backend type name.
package metadb

import (
	"fmt"

	"github.com/openvault/ledger-node/db"
	"github.com/openvault/ledger-node/db/inmemory"
	"github.com/openvault/ledger-node/db/pebbledb"
)

// New returns a database of the given type (db.TypePebble or
// db.TypeInMemory) rooted at dir. The in-memory backend ignores dir.
func New(typ, dir string) (db.Database, error) {
	switch typ {
	case db.TypePebble:
		return pebbledb.New(db.Options{Path: dir})
	case db.TypeInMemory:
		return inmemory.New(db.Options{})
	default:
		return nil, fmt.Errorf("unknown database type %q", typ)
	}
}
