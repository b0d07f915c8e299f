package prefixeddb

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/openvault/ledger-node/db"
	"github.com/openvault/ledger-node/db/inmemory"
)

func TestPrefixIsolation(t *testing.T) {
	c := qt.New(t)
	base, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)

	users := NewPrefixedDatabase(base, []byte("u/"))
	posts := NewPrefixedDatabase(base, []byte("p/"))

	wtx := users.WriteTx()
	c.Assert(wtx.Set([]byte("alice"), []byte("1")), qt.IsNil)
	c.Assert(wtx.Commit(), qt.IsNil)

	wtx = posts.WriteTx()
	c.Assert(wtx.Set([]byte("alice"), []byte("2")), qt.IsNil)
	c.Assert(wtx.Commit(), qt.IsNil)

	// same key, different namespaces
	v, err := users.Get([]byte("alice"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "1")
	v, err = posts.Get([]byte("alice"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "2")

	// the raw key carries the namespace
	v, err = base.Get([]byte("u/alice"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "1")
}

func TestPrefixedIterateStripsNamespace(t *testing.T) {
	c := qt.New(t)
	base, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)

	view := NewPrefixedDatabase(base, []byte("t/"))
	wtx := view.WriteTx()
	for _, k := range []string{"acc1/x", "acc1/y", "acc2/z"} {
		c.Assert(wtx.Set([]byte(k), []byte("v")), qt.IsNil)
	}
	c.Assert(wtx.Commit(), qt.IsNil)

	var keys []string
	c.Assert(view.Iterate([]byte("acc1/"), func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return true
	}), qt.IsNil)
	c.Assert(keys, qt.DeepEquals, []string{"acc1/x", "acc1/y"})
}

func TestSharedWriteTx(t *testing.T) {
	c := qt.New(t)
	base, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)

	// two prefixed views over one transaction commit atomically
	wtx := base.WriteTx()
	c.Assert(NewPrefixedWriteTx(wtx, []byte("a/")).Set([]byte("k"), []byte("1")), qt.IsNil)
	c.Assert(NewPrefixedWriteTx(wtx, []byte("b/")).Set([]byte("k"), []byte("2")), qt.IsNil)
	c.Assert(wtx.Commit(), qt.IsNil)

	v, err := base.Get([]byte("a/k"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "1")
	v, err = base.Get([]byte("b/k"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "2")
}
