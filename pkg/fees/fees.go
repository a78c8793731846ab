package fees

import (
	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/shopspring/decimal"
)

// DefaultPercentage is the platform fee applied when none is configured.
const DefaultPercentage = 2.5

var hundred = decimal.NewFromInt(100)

// Split is the result of dividing a charge between the platform and the merchant.
type Split struct {
	Fee              decimal.Decimal
	SettlementAmount decimal.Decimal
}

// Compute returns the platform fee and the merchant settlement for amount
// (minor units) at feePercentage. The card network settles in whole minor
// units so its fee is floored; mobile-money fees keep their fraction.
// Negative amounts are rejected by callers before reaching here.
func Compute(amount int64, feePercentage decimal.Decimal, method models.PaymentMethod) Split {
	gross := decimal.NewFromInt(amount)
	if amount == 0 {
		return Split{Fee: decimal.Zero, SettlementAmount: decimal.Zero}
	}

	fee := gross.Mul(feePercentage).Div(hundred)
	if method == models.CARD {
		fee = fee.Floor()
	}

	return Split{
		Fee:              fee,
		SettlementAmount: gross.Sub(fee),
	}
}
