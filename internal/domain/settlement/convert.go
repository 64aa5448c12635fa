package settlement

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	centsPerDollar = decimal.NewFromInt(100)
	maxInt64       = decimal.NewFromInt(math.MaxInt64)
)

// USDCents converts a major-unit amount quoted at rate (units per USD)
// to whole US cents: floor(100 * amount / rate).
func USDCents(amount, rate decimal.Decimal) (int64, error) {
	if !rate.IsPositive() {
		return 0, integrityErr("non-positive rate %s", rate)
	}
	q, r := centsPerDollar.Mul(amount).QuoRem(rate, 0)
	if r.IsNegative() {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return toInt64(q)
}

// MinorUnits converts a major-unit amount to minor units:
// floor(amount * fractional).
func MinorUnits(amount decimal.Decimal, fractional int64) (int64, error) {
	return toInt64(amount.Mul(decimal.NewFromInt(fractional)).Floor())
}

// LegFromUSD is the cross-currency leg: floor(usdCents * rate * fractional).
// This carries over the historical ledger formula, which scales the
// USD-cent anchor by the target fractional a second time. Fix it here and
// nowhere else.
func LegFromUSD(usdCents int64, rate decimal.Decimal, fractional int64) (int64, error) {
	if !rate.IsPositive() {
		return 0, integrityErr("non-positive rate %s", rate)
	}
	v := decimal.NewFromInt(usdCents).Mul(rate).Mul(decimal.NewFromInt(fractional)).Floor()
	return toInt64(v)
}

func toInt64(d decimal.Decimal) (int64, error) {
	if d.GreaterThan(maxInt64) || d.LessThan(maxInt64.Neg()) {
		return 0, integrityErr("amount %s overflows minor units", d)
	}
	return d.IntPart(), nil
}
