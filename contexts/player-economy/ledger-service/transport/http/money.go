package http

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

const DefaultCurrencyScale int32 = 2

var ErrAmountPrecision = errors.New("amount has more fractional digits than the currency allows")

var (
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
	minMinorUnits = decimal.NewFromInt(math.MinInt64)
)

// Currency converts wire decimals to ledger minor units. Scale is the number
// of fractional digits of the currency, 2 for TRY/USD.
type Currency struct {
	Scale int32
}

func (c Currency) scale() int32 {
	if c.Scale < 0 {
		return DefaultCurrencyScale
	}
	return c.Scale
}

// ToMinor rejects values that would lose precision or overflow. Sign is kept
// so that non-positive amounts reach the ledger and are audited as rejected.
func (c Currency) ToMinor(amount decimal.Decimal) (int64, error) {
	scale := c.scale()
	if !amount.Equal(amount.Truncate(scale)) {
		return 0, ErrAmountPrecision
	}
	minor := amount.Shift(scale)
	if minor.GreaterThan(maxMinorUnits) || minor.LessThan(minMinorUnits) {
		return 0, ErrAmountPrecision
	}
	return minor.IntPart(), nil
}

func (c Currency) FromMinor(minor int64) string {
	scale := c.scale()
	return decimal.New(minor, -scale).StringFixed(scale)
}
