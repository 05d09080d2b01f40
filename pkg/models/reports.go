package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DashboardData struct {
	TotalLoaned    decimal.Decimal `json:"totalLoaned"`
	TotalCollected decimal.Decimal `json:"totalCollected"`
	TotalPending   decimal.Decimal `json:"totalPending"`
	DueToday       decimal.Decimal `json:"dueToday"`
	LoanCount      int             `json:"loanCount"`
	ActiveLoans    int             `json:"activeLoans"`
}

type CollectionRow struct {
	ClientID   string          `json:"clientId"`
	ClientName string          `json:"clientName"`
	LoanID     string          `json:"loanId"`
	Amount     decimal.Decimal `json:"amount"`
	Paid       bool            `json:"paid"`
}

type CollectionsForDay struct {
	Date        time.Time       `json:"date"`
	TotalAmount decimal.Decimal `json:"totalAmount"` // Not reduced by paid rows
	Clients     []CollectionRow `json:"clients"`
}

type ClientWithLoans struct {
	Client
	ActiveLoans int             `json:"activeLoans"`
	TotalOwed   decimal.Decimal `json:"totalOwed"`
}

type LoanDetails struct {
	Loan             Loan            `json:"loan"`
	ClientName       string          `json:"clientName"`
	Payments         []Payment       `json:"payments"`
	TotalToRepay     decimal.Decimal `json:"totalToRepay"`
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	Remaining        decimal.Decimal `json:"remaining"`
	DailyInstallment decimal.Decimal `json:"dailyInstallment"`
	Settled          bool            `json:"settled"` // Loan moved to completed during this read
}
