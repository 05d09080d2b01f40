package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrClientNameInvalid    = errors.New("client name must be at least 3 characters")
	ErrClientPhoneInvalid   = errors.New("client phone must be at least 8 characters")
	ErrLoanAmountInvalid    = errors.New("loan amount must be positive")
	ErrLoanRateInvalid      = errors.New("interest rate must not be negative")
	ErrLoanTermsInvalid     = errors.New("loan terms must be at least 1 day")
	ErrPaymentAmountInvalid = errors.New("payment amount must be positive")
)

// Validate checks the fields a caller must guarantee before handing a client
// to the repository, which trusts its inputs.
func (c *Client) Validate() error {
	if len([]rune(strings.TrimSpace(c.Name))) < 3 {
		return ErrClientNameInvalid
	}
	if len(strings.TrimSpace(c.Phone)) < 8 {
		return ErrClientPhoneInvalid
	}
	return nil
}

func (l *Loan) Validate() error {
	if l.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrLoanAmountInvalid
	}
	if l.InterestRate.IsNegative() {
		return ErrLoanRateInvalid
	}
	if l.Terms <= 0 {
		return ErrLoanTermsInvalid
	}
	return nil
}

func (p *Payment) Validate() error {
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrPaymentAmountInvalid
	}
	return nil
}
