package amount

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical decimal places for each kind. These match the NUMERIC scales in
// db/migrations so an in-memory value equals what PostgreSQL stores.
const (
	DGTDecimals  int32 = 8
	USDDecimals  int32 = 2
	XPDecimals   int32 = 0
	RateDecimals int32 = 8
)

// DGT is a token amount.
type DGT decimal.Decimal

// USD is a dollar amount.
type USD decimal.Decimal

// XP is an experience-point amount.
type XP decimal.Decimal

// Fee is a DGT-denominated amount withheld from a gross transaction amount.
type Fee decimal.Decimal

// Rate is an exchange rate expressed as USD per DGT.
type Rate decimal.Decimal

// Kind is the set of amount types the arithmetic helpers operate on. Rate is
// deliberately excluded: a rate is a factor, not a quantity.
type Kind interface {
	DGT | USD | XP | Fee
}

type anyKind interface {
	DGT | USD | XP | Fee | Rate
}

func dec[T anyKind](v T) decimal.Decimal {
	return decimal.Decimal(v)
}

func precision[T anyKind]() int32 {
	var zero T
	switch any(zero).(type) {
	case USD:
		return USDDecimals
	case XP:
		return XPDecimals
	case Rate:
		return RateDecimals
	default:
		return DGTDecimals
	}
}

func kindName[T anyKind]() string {
	var zero T
	switch any(zero).(type) {
	case USD:
		return "usd"
	case XP:
		return "xp"
	case Fee:
		return "fee"
	case Rate:
		return "rate"
	default:
		return "dgt"
	}
}

// canonical rounds to the kind's persisted precision.
func canonical[T anyKind](d decimal.Decimal) T {
	return T(d.Round(precision[T]()))
}

func parse(op string, raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Zero, NewAmountError(ErrValidation, op, v)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, NewAmountError(ErrValidation, op, v, err)
		}
		return d, nil
	case json.Number:
		return parse(op, string(v))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float32:
		return parseFloat(op, float64(v))
	case float64:
		return parseFloat(op, v)
	default:
		return decimal.Zero, NewAmountError(ErrValidation, op, fmt.Sprintf("%T", raw))
	}
}

func parseFloat(op string, f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, NewAmountError(ErrValidation, op, fmt.Sprint(f))
	}
	return decimal.NewFromFloat(f), nil
}

// construct rejects input carrying more decimal places than the kind
// persists. Rounding is only ever explicit, through Round or Canonical.
func construct[T anyKind](raw any) (T, error) {
	var zero T
	op := "to_" + kindName[T]()
	d, err := parse(op, raw)
	if err != nil {
		return zero, err
	}
	if p := precision[T](); !d.Equal(d.Truncate(p)) {
		return zero, NewAmountError(ErrValidation, op, d.String(), fmt.Errorf("more than %d decimal places", p))
	}
	return canonical[T](d), nil
}

// ToDGT validates raw input and returns a token amount. Negative values are
// accepted here; the arithmetic helpers reject negative results.
func ToDGT(raw any) (DGT, error) { return construct[DGT](raw) }

// ToUSD validates raw input and returns a dollar amount.
func ToUSD(raw any) (USD, error) { return construct[USD](raw) }

// ToXP validates raw input and returns an experience-point amount.
func ToXP(raw any) (XP, error) { return construct[XP](raw) }

// ToFee validates raw input and returns a fee amount.
func ToFee(raw any) (Fee, error) { return construct[Fee](raw) }

// ToRate validates raw input and returns an exchange rate.
func ToRate(raw any) (Rate, error) { return construct[Rate](raw) }

// MustDGT is ToDGT for constants and tests. It panics on invalid input.
func MustDGT(raw any) DGT {
	v, err := ToDGT(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// FeeAsDGT crosses a fee into the token kind it is denominated in.
func FeeAsDGT(f Fee) DGT { return DGT(f) }

// DGTAsFee is the inverse of FeeAsDGT.
func DGTAsFee(v DGT) Fee { return Fee(v) }

func (v DGT) Decimal() decimal.Decimal  { return decimal.Decimal(v) }
func (v USD) Decimal() decimal.Decimal  { return decimal.Decimal(v) }
func (v XP) Decimal() decimal.Decimal   { return decimal.Decimal(v) }
func (v Fee) Decimal() decimal.Decimal  { return decimal.Decimal(v) }
func (v Rate) Decimal() decimal.Decimal { return decimal.Decimal(v) }

func (v DGT) String() string  { return v.Decimal().StringFixed(DGTDecimals) }
func (v USD) String() string  { return v.Decimal().StringFixed(USDDecimals) }
func (v XP) String() string   { return v.Decimal().StringFixed(XPDecimals) }
func (v Fee) String() string  { return v.Decimal().StringFixed(DGTDecimals) }
func (v Rate) String() string { return v.Decimal().StringFixed(RateDecimals) }

func (v DGT) MarshalJSON() ([]byte, error)  { return json.Marshal(v.String()) }
func (v USD) MarshalJSON() ([]byte, error)  { return json.Marshal(v.String()) }
func (v XP) MarshalJSON() ([]byte, error)   { return json.Marshal(v.String()) }
func (v Fee) MarshalJSON() ([]byte, error)  { return json.Marshal(v.String()) }
func (v Rate) MarshalJSON() ([]byte, error) { return json.Marshal(v.String()) }
