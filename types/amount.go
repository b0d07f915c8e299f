package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits carried by Amount.
const AmountScale = 8

// maxAmountMinor bounds amounts to the (18,8) decimal projection: 18
// significant digits, 8 of them fractional.
const maxAmountMinor = int64(1e18) - 1

var (
	// ErrAmountRange is returned when a value exceeds the (18,8) range.
	ErrAmountRange = errors.New("amount out of range")
	// ErrAmountPrecision is returned when a value carries more than
	// AmountScale fractional digits.
	ErrAmountPrecision = errors.New("amount exceeds 8 fractional digits")
	// ErrAmountMalformed is returned when a value cannot be parsed.
	ErrAmountMalformed = errors.New("malformed amount")
)

// Amount is a currency amount in minor units at scale 10^-8. All ledger
// arithmetic happens on this integer representation; the decimal string
// form is only a projection at the edges (API, logs, storage of legacy
// dumps).
type Amount int64

// ParseAmount parses a decimal string into an Amount. Values with more
// than AmountScale fractional digits or outside the (18,8) range are
// rejected.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrAmountMalformed, s)
	}
	return AmountFromDecimal(d)
}

// AmountFromDecimal converts a decimal into an Amount without rounding.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	minor := d.Shift(AmountScale)
	if !minor.IsInteger() {
		return 0, ErrAmountPrecision
	}
	big := minor.BigInt()
	if !big.IsInt64() {
		return 0, ErrAmountRange
	}
	v := big.Int64()
	if v > maxAmountMinor || v < -maxAmountMinor {
		return 0, ErrAmountRange
	}
	return Amount(v), nil
}

// AmountFromDecimalBankers converts a decimal into an Amount rounding
// half-even to AmountScale fractional digits. Used for derived values
// such as fees.
func AmountFromDecimalBankers(d decimal.Decimal) (Amount, error) {
	return AmountFromDecimal(d.RoundBank(AmountScale))
}

// MustParseAmount is ParseAmount that panics on error. Test helper.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal returns the decimal projection of the amount.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -AmountScale)
}

// String renders the amount as a plain decimal string, e.g. "150.75".
func (a Amount) String() string {
	return a.Decimal().String()
}

// Positive reports whether the amount is strictly greater than zero.
func (a Amount) Positive() bool { return a > 0 }

// Add returns a+b, failing if the result leaves the (18,8) range.
func (a Amount) Add(b Amount) (Amount, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrAmountRange
	}
	sum := a + b
	if sum > Amount(maxAmountMinor) || sum < -Amount(maxAmountMinor) {
		return 0, ErrAmountRange
	}
	return sum, nil
}

// Sub returns a-b, failing if the result leaves the (18,8) range.
func (a Amount) Sub(b Amount) (Amount, error) {
	return a.Add(-b)
}

// MarshalJSON encodes the amount as its decimal string projection.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// bare number
		s = string(data)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
