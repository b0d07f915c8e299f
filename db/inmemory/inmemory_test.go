package inmemory

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/openvault/ledger-node/db"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := New(db.Options{})
	qt.Assert(t, err, qt.IsNil)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestSetGetDelete(t *testing.T) {
	c := qt.New(t)
	d := newTestDB(t)

	_, err := d.Get([]byte("k"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	wtx := d.WriteTx()
	c.Assert(wtx.Set([]byte("k"), []byte("v")), qt.IsNil)
	// uncommitted writes are only visible inside the transaction
	v, err := wtx.Get([]byte("k"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "v")
	_, err = d.Get([]byte("k"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	c.Assert(wtx.Commit(), qt.IsNil)
	v, err = d.Get([]byte("k"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "v")

	wtx = d.WriteTx()
	c.Assert(wtx.Delete([]byte("k")), qt.IsNil)
	c.Assert(wtx.Commit(), qt.IsNil)
	_, err = d.Get([]byte("k"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}

func TestIteratePrefix(t *testing.T) {
	c := qt.New(t)
	d := newTestDB(t)

	wtx := d.WriteTx()
	for _, k := range []string{"a/1", "a/2", "b/1"} {
		c.Assert(wtx.Set([]byte(k), []byte("x")), qt.IsNil)
	}
	c.Assert(wtx.Commit(), qt.IsNil)

	var keys []string
	c.Assert(d.Iterate([]byte("a/"), func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return true
	}), qt.IsNil)
	c.Assert(keys, qt.DeepEquals, []string{"a/1", "a/2"})

	// early stop
	keys = nil
	c.Assert(d.Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return false
	}), qt.IsNil)
	c.Assert(keys, qt.HasLen, 1)
}

func TestConflictDetection(t *testing.T) {
	c := qt.New(t)
	d := newTestDB(t)

	wtx := d.WriteTx()
	c.Assert(wtx.Set([]byte("counter"), []byte("0")), qt.IsNil)
	c.Assert(wtx.Commit(), qt.IsNil)

	// two transactions read the same key; the second commit loses
	tx1 := d.WriteTx()
	tx2 := d.WriteTx()
	_, err := tx1.Get([]byte("counter"))
	c.Assert(err, qt.IsNil)
	_, err = tx2.Get([]byte("counter"))
	c.Assert(err, qt.IsNil)

	c.Assert(tx1.Set([]byte("counter"), []byte("1")), qt.IsNil)
	c.Assert(tx2.Set([]byte("counter"), []byte("2")), qt.IsNil)

	c.Assert(tx1.Commit(), qt.IsNil)
	c.Assert(tx2.Commit(), qt.ErrorIs, db.ErrConflict)

	v, err := d.Get([]byte("counter"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "1")
}

func TestCommitTwice(t *testing.T) {
	c := qt.New(t)
	d := newTestDB(t)

	wtx := d.WriteTx()
	c.Assert(wtx.Set([]byte("k"), []byte("v")), qt.IsNil)
	c.Assert(wtx.Commit(), qt.IsNil)
	c.Assert(wtx.Commit(), qt.IsNotNil)

	wtx = d.WriteTx()
	wtx.Discard()
	c.Assert(wtx.Commit(), qt.IsNotNil)
}
