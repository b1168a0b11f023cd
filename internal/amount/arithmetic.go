package amount

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Add returns a + b.
func Add[T Kind](a, b T) T {
	return canonical[T](dec(a).Add(dec(b)))
}

// Subtract returns a - b. A negative result is an error; callers are expected
// to check availability first rather than rely on clamping.
func Subtract[T Kind](a, b T) (T, error) {
	r := dec(a).Sub(dec(b))
	if r.IsNegative() {
		var zero T
		return zero, NewAmountError(ErrInvalidAmount, "subtract", r.String())
	}
	return canonical[T](r), nil
}

// MultiplyByFactor returns a * factor. The factor must not be negative.
func MultiplyByFactor[T Kind](a T, factor decimal.Decimal) (T, error) {
	var zero T
	if factor.IsNegative() {
		return zero, NewAmountError(ErrInvalidAmount, "multiply_by_factor", factor.String())
	}
	r := dec(a).Mul(factor)
	if r.IsNegative() {
		return zero, NewAmountError(ErrInvalidAmount, "multiply_by_factor", r.String())
	}
	return canonical[T](r), nil
}

// PercentageOf returns pct percent of a. pct must be within [0, 100].
func PercentageOf[T Kind](a T, pct decimal.Decimal) (T, error) {
	var zero T
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return zero, NewAmountError(ErrInvalidAmount, "percentage_of", pct.String())
	}
	if dec(a).IsNegative() {
		return zero, NewAmountError(ErrInvalidAmount, "percentage_of", dec(a).String())
	}
	r := dec(a).Mul(pct).Div(hundred)
	// Truncate so the share can never exceed the whole.
	return T(r.Truncate(precision[T]())), nil
}

// DivideBy splits a into n equal shares, truncated to the kind's precision so
// that n shares never add up to more than a.
func DivideBy[T Kind](a T, n int64) (T, error) {
	var zero T
	if n == 0 {
		return zero, NewAmountError(ErrDivisionByZero, "divide_by", "0")
	}
	if n < 0 {
		return zero, NewAmountError(ErrInvalidAmount, "divide_by", decimal.NewFromInt(n).String())
	}
	if dec(a).IsNegative() {
		return zero, NewAmountError(ErrInvalidAmount, "divide_by", dec(a).String())
	}
	p := precision[T]()
	r := dec(a).DivRound(decimal.NewFromInt(n), p+4).Truncate(p)
	return T(r), nil
}

// ConvertToUSD values a token amount at the given rate.
func ConvertToUSD(v DGT, rate Rate) (USD, error) {
	if dec(rate).IsNegative() {
		return USD{}, NewAmountError(ErrInvalidAmount, "convert_to_usd", dec(rate).String())
	}
	return canonical[USD](dec(v).Mul(dec(rate))), nil
}

// ConvertToDGT buys tokens with a dollar amount at the given rate.
func ConvertToDGT(v USD, rate Rate) (DGT, error) {
	if dec(rate).IsZero() {
		return DGT{}, NewAmountError(ErrDivisionByZero, "convert_to_dgt", "0")
	}
	if dec(rate).IsNegative() {
		return DGT{}, NewAmountError(ErrInvalidAmount, "convert_to_dgt", dec(rate).String())
	}
	return canonical[DGT](dec(v).DivRound(dec(rate), DGTDecimals+4)), nil
}

// RateOf derives the USD-per-DGT rate implied by paying usd for tokens.
func RateOf(usd USD, tokens DGT) (Rate, error) {
	if dec(tokens).IsZero() {
		return Rate{}, NewAmountError(ErrDivisionByZero, "rate_of", "0")
	}
	r := dec(usd).DivRound(dec(tokens), RateDecimals+4)
	if r.IsNegative() {
		return Rate{}, NewAmountError(ErrInvalidAmount, "rate_of", r.String())
	}
	return canonical[Rate](r), nil
}

// Round rounds half away from zero to the given number of decimals.
func Round[T Kind](a T, decimals int32) T {
	return T(dec(a).Round(decimals))
}

// Canonical rounds to the precision persistence will store for the kind.
func Canonical[T Kind](a T) T {
	return canonical[T](dec(a))
}

// Cmp compares a and b, returning -1, 0 or 1.
func Cmp[T Kind](a, b T) int {
	return dec(a).Cmp(dec(b))
}

func Equal[T Kind](a, b T) bool {
	return dec(a).Equal(dec(b))
}

func IsZero[T Kind](a T) bool {
	return dec(a).IsZero()
}

func IsNegative[T Kind](a T) bool {
	return dec(a).IsNegative()
}

func IsPositive[T Kind](a T) bool {
	return dec(a).IsPositive()
}

func Max[T Kind](a, b T) T {
	if Cmp(a, b) >= 0 {
		return a
	}
	return b
}

func Min[T Kind](a, b T) T {
	if Cmp(a, b) <= 0 {
		return a
	}
	return b
}
