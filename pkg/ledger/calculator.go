package ledger

import (
	"github.com/mcclellann/lendbook/pkg/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// InterestAmount is the flat interest charged once over the whole term.
func InterestAmount(loan models.Loan) decimal.Decimal {
	return loan.Amount.Mul(loan.InterestRate).Div(hundred)
}

// TotalToRepay is principal plus flat interest. It depends only on stored
// fields and never on time or payments.
func TotalToRepay(loan models.Loan) decimal.Decimal {
	return loan.Amount.Add(InterestAmount(loan))
}

// PaidAmount sums the payments that belong to loan, ignoring the rest.
func PaidAmount(loan models.Loan, payments []models.Payment) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range payments {
		if p.LoanID == loan.ID {
			paid = paid.Add(p.Amount)
		}
	}
	return paid
}

// Remaining may go negative when a loan is overpaid.
func Remaining(loan models.Loan, payments []models.Payment) decimal.Decimal {
	return TotalToRepay(loan).Sub(PaidAmount(loan, payments))
}

// DailyInstallment assumes loan.Terms > 0; loans are validated before they
// are stored.
func DailyInstallment(loan models.Loan) decimal.Decimal {
	return TotalToRepay(loan).Div(decimal.NewFromInt(int64(loan.Terms)))
}

// IsPaidOff reports whether payments cover the total to repay.
func IsPaidOff(loan models.Loan, payments []models.Payment) bool {
	return PaidAmount(loan, payments).GreaterThanOrEqual(TotalToRepay(loan))
}
