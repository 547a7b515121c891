package router

import (
	"github.com/shopspring/decimal"

	"github.com/dzpay/bankcore/pkg/models"
)

// FeeSchedule applies the deterministic fee rules: a flat base fee, a fixed
// surcharge for cross-bank transfers, and a basis-point fee on amounts above
// the floor.
type FeeSchedule struct {
	Currency           string
	BaseFee            decimal.Decimal
	CrossBankSurcharge decimal.Decimal
	BasisPointRate     decimal.Decimal
	BasisPointFloor    decimal.Decimal
}

// DefaultFeeSchedule returns the production DZD schedule.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		Currency:           "DZD",
		BaseFee:            decimal.NewFromInt(50),
		CrossBankSurcharge: decimal.NewFromInt(100),
		BasisPointRate:     decimal.NewFromFloat(0.001),
		BasisPointFloor:    decimal.NewFromInt(100000),
	}
}

// Compute derives the fee breakdown for an amount and routing path.
func (f FeeSchedule) Compute(amount decimal.Decimal, crossBank bool) models.FeeBreakdown {
	out := models.FeeBreakdown{
		BaseFee:       f.BaseFee,
		CrossBankFee:  decimal.Zero,
		PercentageFee: decimal.Zero,
		Currency:      f.Currency,
	}
	if crossBank {
		out.CrossBankFee = f.CrossBankSurcharge
	}
	if amount.GreaterThan(f.BasisPointFloor) {
		out.PercentageFee = amount.Mul(f.BasisPointRate).Round(2)
	}
	out.TotalFee = out.BaseFee.Add(out.CrossBankFee).Add(out.PercentageFee)
	return out
}
