package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusDefaulted LoanStatus = "defaulted" // assigned manually only, never by the ledger
)

type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

type Loan struct {
	ID           string          `json:"id"`
	ClientID     string          `json:"clientId"`
	Amount       decimal.Decimal `json:"amount"`       // Principal
	InterestRate decimal.Decimal `json:"interestRate"` // Flat percent over the whole term
	Terms        int             `json:"terms"`        // Duration in days
	StartDate    time.Time       `json:"startDate"`
	EndDate      time.Time       `json:"endDate"`
	Status       LoanStatus      `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type Payment struct {
	ID        string          `json:"id"`
	LoanID    string          `json:"loanId"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"createdAt"`
}

// User is the access credential consumed by the PIN gate.
type User struct {
	Pin           string `json:"pin"`
	UseBiometrics bool   `json:"useBiometrics"`
}

// UserPatch carries a partial update; nil fields are left untouched.
type UserPatch struct {
	Pin           *string `json:"pin,omitempty"`
	UseBiometrics *bool   `json:"useBiometrics,omitempty"`
}

// Document is the single persisted record holding the whole ledger.
type Document struct {
	Clients  []Client  `json:"clients"`
	Loans    []Loan    `json:"loans"`
	Payments []Payment `json:"payments"`
	User     *User     `json:"user"`
	LastSync time.Time `json:"lastSync"`
}

// NewDocument returns an empty document with non-nil collections.
func NewDocument(now time.Time) *Document {
	return &Document{
		Clients:  []Client{},
		Loans:    []Loan{},
		Payments: []Payment{},
		User:     nil,
		LastSync: now,
	}
}

// Normalize replaces nil collections so a decoded document is safe to append to
// and encodes as empty arrays.
func (d *Document) Normalize() {
	if d.Clients == nil {
		d.Clients = []Client{}
	}
	if d.Loans == nil {
		d.Loans = []Loan{}
	}
	if d.Payments == nil {
		d.Payments = []Payment{}
	}
}
