package amount

import "github.com/shopspring/decimal"

// Policy carries the platform limits the ledger enforces. It is passed in
// explicitly so tests can run against arbitrary values.
type Policy struct {
	MinimumTip           DGT
	MaximumTip           DGT
	MaximumRain          DGT
	MinimumFee           Fee
	DailyWithdrawalLimit DGT
}

func DefaultPolicy() Policy {
	return Policy{
		MinimumTip:           MustDGT("1"),
		MaximumTip:           MustDGT("100000"),
		MaximumRain:          MustDGT("10000"),
		MinimumFee:           DGTAsFee(MustDGT("0.1")),
		DailyWithdrawalLimit: MustDGT("50000"),
	}
}

// CalculateFee returns feePct percent of a, or the platform minimum fee when
// the percentage would come out lower.
func (p Policy) CalculateFee(a DGT, feePct decimal.Decimal) (Fee, error) {
	share, err := PercentageOf(a, feePct)
	if err != nil {
		return Fee{}, err
	}
	return Max(DGTAsFee(share), p.MinimumFee), nil
}

func (p Policy) IsAboveMinimumTip(a DGT) bool {
	return Cmp(a, p.MinimumTip) >= 0
}

func (p Policy) IsWithinTipCeiling(a DGT) bool {
	return Cmp(a, p.MaximumTip) <= 0
}

func (p Policy) IsWithinRainCeiling(a DGT) bool {
	return Cmp(a, p.MaximumRain) <= 0
}

// IsWithinDailyWithdrawalCeiling reports whether requesting a on top of what
// was already withdrawn today stays within the daily limit.
func (p Policy) IsWithinDailyWithdrawalCeiling(withdrawnToday, a DGT) bool {
	return Cmp(Add(withdrawnToday, a), p.DailyWithdrawalLimit) <= 0
}

// ValidateTip turns the tip predicates into the business-rule errors callers
// surface to users.
func (p Policy) ValidateTip(a DGT) error {
	if !p.IsAboveMinimumTip(a) {
		return NewAmountError(ErrBelowMinimum, "tip", a.String())
	}
	if !p.IsWithinTipCeiling(a) {
		return NewAmountError(ErrCeilingExceeded, "tip", a.String())
	}
	return nil
}

func (p Policy) ValidateRain(a DGT) error {
	if !IsPositive(a) {
		return NewAmountError(ErrBelowMinimum, "rain", a.String())
	}
	if !p.IsWithinRainCeiling(a) {
		return NewAmountError(ErrCeilingExceeded, "rain", a.String())
	}
	return nil
}
