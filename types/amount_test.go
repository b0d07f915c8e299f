package types

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	c := qt.New(t)

	a, err := ParseAmount("150.75")
	c.Assert(err, qt.IsNil)
	c.Assert(int64(a), qt.Equals, int64(15075000000))
	c.Assert(a.String(), qt.Equals, "150.75")

	a, err = ParseAmount("0.00000001")
	c.Assert(err, qt.IsNil)
	c.Assert(int64(a), qt.Equals, int64(1))

	_, err = ParseAmount("0.000000001")
	c.Assert(err, qt.ErrorIs, ErrAmountPrecision)

	_, err = ParseAmount("not-a-number")
	c.Assert(err, qt.ErrorIs, ErrAmountMalformed)

	_, err = ParseAmount("10000000000")
	c.Assert(err, qt.ErrorIs, ErrAmountRange)

	// negative values parse; callers decide whether they are acceptable
	a, err = ParseAmount("-3.5")
	c.Assert(err, qt.IsNil)
	c.Assert(a.Positive(), qt.IsFalse)
}

func TestAmountArithmetic(t *testing.T) {
	c := qt.New(t)

	a := MustParseAmount("100")
	b := MustParseAmount("0.5")

	sum, err := a.Add(b)
	c.Assert(err, qt.IsNil)
	c.Assert(sum.String(), qt.Equals, "100.5")

	diff, err := a.Sub(b)
	c.Assert(err, qt.IsNil)
	c.Assert(diff.String(), qt.Equals, "99.5")

	near := MustParseAmount("9999999999.99999999")
	_, err = near.Add(MustParseAmount("0.00000001"))
	c.Assert(err, qt.ErrorIs, ErrAmountRange)
}

func TestAmountBankersRounding(t *testing.T) {
	c := qt.New(t)

	// half-even: .000000015 rounds to .00000002, .000000025 also to .00000002
	a, err := AmountFromDecimalBankers(decimal.RequireFromString("0.000000015"))
	c.Assert(err, qt.IsNil)
	c.Assert(int64(a), qt.Equals, int64(2))

	a, err = AmountFromDecimalBankers(decimal.RequireFromString("0.000000025"))
	c.Assert(err, qt.IsNil)
	c.Assert(int64(a), qt.Equals, int64(2))
}

func TestAmountJSON(t *testing.T) {
	c := qt.New(t)

	data, err := json.Marshal(MustParseAmount("42.1"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `"42.1"`)

	var a Amount
	c.Assert(json.Unmarshal([]byte(`"0.25"`), &a), qt.IsNil)
	c.Assert(a.String(), qt.Equals, "0.25")

	// bare numbers are accepted too
	c.Assert(json.Unmarshal([]byte(`7`), &a), qt.IsNil)
	c.Assert(a.String(), qt.Equals, "7")

	c.Assert(json.Unmarshal([]byte(`"1.123456789"`), &a), qt.IsNotNil)
}
