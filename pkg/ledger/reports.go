package ledger

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/mcclellann/lendbook/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// UnknownClientName stands in for a client that no longer exists.
const UnknownClientName = "Unknown client"

var (
	ErrLoanNotFound   = errors.New("loan not found")
	ErrClientNotFound = errors.New("client not found")
)

// Reports derives read models from the ledger. Every query reloads the full
// document; nothing is cached between calls.
type Reports struct {
	repo   *Repository
	logger *logrus.Logger
	loc    *time.Location // Day boundaries are taken in this location
	now    func() time.Time
}

// NewReports creates a Reports over repo. A nil loc means time.Local.
func NewReports(repo *Repository, logger *logrus.Logger, loc *time.Location) *Reports {
	if loc == nil {
		loc = time.Local
	}
	return &Reports{repo: repo, logger: logger, loc: loc, now: time.Now}
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// runsOn reports whether instant falls within the loan's [start, end] interval.
func runsOn(loan models.Loan, instant time.Time) bool {
	return !loan.StartDate.After(instant) && !loan.EndDate.Before(instant)
}

// Dashboard summarizes the whole ledger.
func (r *Reports) Dashboard() models.DashboardData {
	doc := r.repo.Snapshot()
	today := StartOfDay(r.now(), r.loc)

	data := models.DashboardData{
		TotalLoaned:    decimal.Zero,
		TotalCollected: decimal.Zero,
		TotalPending:   decimal.Zero,
		DueToday:       decimal.Zero,
		LoanCount:      len(doc.Loans),
	}
	for _, p := range doc.Payments {
		data.TotalCollected = data.TotalCollected.Add(p.Amount)
	}
	for _, loan := range doc.Loans {
		data.TotalLoaned = data.TotalLoaned.Add(loan.Amount)
		if loan.Status != models.LoanStatusActive {
			continue
		}
		data.ActiveLoans++
		data.TotalPending = data.TotalPending.Add(Remaining(loan, doc.Payments))
		if runsOn(loan, today) {
			data.DueToday = data.DueToday.Add(DailyInstallment(loan))
		}
	}
	return data
}

// CollectionsForDay lists the daily installments expected on day's calendar
// date. A row is paid when any payment for its loan is dated within that day.
func (r *Reports) CollectionsForDay(day time.Time) models.CollectionsForDay {
	doc := r.repo.Snapshot()
	start := StartOfDay(day, r.loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)

	names := make(map[string]string, len(doc.Clients))
	for _, c := range doc.Clients {
		names[c.ID] = c.Name
	}

	result := models.CollectionsForDay{
		Date:        start,
		TotalAmount: decimal.Zero,
		Clients:     []models.CollectionRow{},
	}
	for _, loan := range doc.Loans {
		if loan.Status != models.LoanStatusActive || !runsOn(loan, start) {
			continue
		}
		name, ok := names[loan.ClientID]
		if !ok {
			name = UnknownClientName
		}
		paid := slices.ContainsFunc(doc.Payments, func(p models.Payment) bool {
			return p.LoanID == loan.ID && !p.Date.Before(start) && !p.Date.After(end)
		})
		amount := DailyInstallment(loan)
		result.TotalAmount = result.TotalAmount.Add(amount)
		result.Clients = append(result.Clients, models.CollectionRow{
			ClientID:   loan.ClientID,
			ClientName: name,
			LoanID:     loan.ID,
			Amount:     amount,
			Paid:       paid,
		})
	}
	return result
}

// ClientsWithLoans returns every client with its active loan count and the
// amount still owed across those loans.
func (r *Reports) ClientsWithLoans() []models.ClientWithLoans {
	doc := r.repo.Snapshot()

	out := make([]models.ClientWithLoans, 0, len(doc.Clients))
	for _, c := range doc.Clients {
		row := models.ClientWithLoans{Client: c, TotalOwed: decimal.Zero}
		for _, loan := range doc.Loans {
			if loan.ClientID != c.ID || loan.Status != models.LoanStatusActive {
				continue
			}
			row.ActiveLoans++
			row.TotalOwed = row.TotalOwed.Add(Remaining(loan, doc.Payments))
		}
		out = append(out, row)
	}
	return out
}

// SettleIfPaidOff moves an active loan to completed once its payments cover
// TotalToRepay, persisting the change. Loans in any other status are returned
// unchanged.
func (r *Reports) SettleIfPaidOff(loan models.Loan, payments []models.Payment) (models.Loan, bool, error) {
	if loan.Status != models.LoanStatusActive || !IsPaidOff(loan, payments) {
		return loan, false, nil
	}

	loan.Status = models.LoanStatusCompleted
	if err := r.repo.UpdateLoan(loan); err != nil {
		return loan, true, fmt.Errorf("failed to settle loan %s: %w", loan.ID, err)
	}
	r.logger.WithFields(logrus.Fields{
		"loan_id":  loan.ID,
		"paid":     PaidAmount(loan, payments).StringFixed(2),
		"to_repay": TotalToRepay(loan).StringFixed(2),
	}).Info("Loan settled")
	return loan, true, nil
}

// LoanDetails loads a loan with its payments and settles it when paid off.
func (r *Reports) LoanDetails(loanID string) (*models.LoanDetails, error) {
	loan, ok := r.repo.GetLoan(loanID)
	if !ok {
		return nil, ErrLoanNotFound
	}
	payments := r.repo.GetPayments(loanID)

	loan, settled, err := r.SettleIfPaidOff(loan, payments)
	details := r.details(loan, payments)
	details.Settled = settled
	return details, err
}

// LoanSummary is LoanDetails without the settle step; it never writes.
func (r *Reports) LoanSummary(loanID string) (*models.LoanDetails, error) {
	loan, ok := r.repo.GetLoan(loanID)
	if !ok {
		return nil, ErrLoanNotFound
	}
	return r.details(loan, r.repo.GetPayments(loanID)), nil
}

func (r *Reports) details(loan models.Loan, payments []models.Payment) *models.LoanDetails {
	name := UnknownClientName
	if c, ok := r.repo.GetClient(loan.ClientID); ok {
		name = c.Name
	}

	// newest first
	slices.SortStableFunc(payments, func(a, b models.Payment) int {
		return b.Date.Compare(a.Date)
	})

	return &models.LoanDetails{
		Loan:             loan,
		ClientName:       name,
		Payments:         payments,
		TotalToRepay:     TotalToRepay(loan),
		TotalPaid:        PaidAmount(loan, payments),
		Remaining:        Remaining(loan, payments),
		DailyInstallment: DailyInstallment(loan),
	}
}
