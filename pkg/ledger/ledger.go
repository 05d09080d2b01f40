package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mcclellann/lendbook/pkg/models"
	"github.com/mcclellann/lendbook/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrClientHasLoans is returned when deleting a client that still has loans.
var ErrClientHasLoans = errors.New("client has loans")

// Ledger is the entry point used by the application screens. It validates
// input and enforces the referential policies the Repository leaves to its
// callers, then delegates to the Repository and Reports.
type Ledger struct {
	repo    *Repository
	reports *Reports
	logger  *logrus.Logger
}

// NewLedger creates a Ledger over a given Storage. Day boundaries for reports
// are taken in loc.
func NewLedger(s store.Storage, logger *logrus.Logger, loc *time.Location) *Ledger {
	repo := NewRepository(s, logger)
	return &Ledger{
		repo:    repo,
		reports: NewReports(repo, logger, loc),
		logger:  logger,
	}
}

// Repository gives unguarded access to the stored entities.
func (l *Ledger) Repository() *Repository {
	return l.repo
}

func (l *Ledger) Reports() *Reports {
	return l.reports
}

// SetClock replaces the time source used for creation stamps and "today".
func (l *Ledger) SetClock(now func() time.Time) {
	l.repo.now = now
	l.reports.now = now
}

// CreateClient validates and stores a new client.
func (l *Ledger) CreateClient(name, phone string) (*models.Client, error) {
	client := models.Client{Name: strings.TrimSpace(name), Phone: strings.TrimSpace(phone)}
	if err := client.Validate(); err != nil {
		return nil, err
	}

	client, err := l.repo.AddClient(client)
	if err != nil {
		return nil, fmt.Errorf("failed to store client: %w", err)
	}
	l.logger.WithField("client_id", client.ID).Info("Client created")
	return &client, nil
}

// UpdateClient edits a client's name and phone.
func (l *Ledger) UpdateClient(id, name, phone string) (*models.Client, error) {
	client, ok := l.repo.GetClient(id)
	if !ok {
		return nil, ErrClientNotFound
	}
	client.Name = strings.TrimSpace(name)
	client.Phone = strings.TrimSpace(phone)
	if err := client.Validate(); err != nil {
		return nil, err
	}
	if err := l.repo.UpdateClient(client); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return &client, nil
}

// DeleteClient refuses to delete a client that any loan still references.
func (l *Ledger) DeleteClient(id string) error {
	if _, ok := l.repo.GetClient(id); !ok {
		return ErrClientNotFound
	}
	if loans := l.repo.GetLoans(id); len(loans) > 0 {
		return fmt.Errorf("client %s has %d loan(s): %w", id, len(loans), ErrClientHasLoans)
	}
	if err := l.repo.DeleteClient(id); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	l.logger.WithField("client_id", id).Info("Client deleted")
	return nil
}

// CreateLoan issues a new active loan to an existing client. The end date is
// start plus terms days.
func (l *Ledger) CreateLoan(clientID string, amount, interestRate decimal.Decimal, terms int, start time.Time) (*models.Loan, error) {
	loan := models.Loan{
		ClientID:     clientID,
		Amount:       amount,
		InterestRate: interestRate,
		Terms:        terms,
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, terms),
		Status:       models.LoanStatusActive,
	}
	if err := loan.Validate(); err != nil {
		return nil, err
	}
	if err := l.repo.CheckClientRef(clientID); err != nil {
		return nil, err
	}

	loan, err := l.repo.AddLoan(loan)
	if err != nil {
		return nil, fmt.Errorf("failed to store loan: %w", err)
	}
	l.logger.WithFields(logrus.Fields{
		"loan_id":   loan.ID,
		"client_id": clientID,
		"amount":    amount.StringFixed(2),
		"terms":     terms,
	}).Info("Loan created")
	return &loan, nil
}

// DeleteLoan removes a loan together with its payments.
func (l *Ledger) DeleteLoan(id string) error {
	if _, ok := l.repo.GetLoan(id); !ok {
		return ErrLoanNotFound
	}
	if err := l.repo.DeleteLoan(id); err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}
	l.logger.WithField("loan_id", id).Info("Loan deleted")
	return nil
}

// RecordPayment stores a payment against an existing loan. Settlement happens
// the next time the loan's details are loaded.
func (l *Ledger) RecordPayment(loanID string, amount decimal.Decimal, date time.Time) (*models.Payment, error) {
	payment := models.Payment{LoanID: loanID, Amount: amount, Date: date}
	if err := payment.Validate(); err != nil {
		return nil, err
	}
	if err := l.repo.CheckLoanRef(loanID); err != nil {
		return nil, err
	}

	payment, err := l.repo.AddPayment(payment)
	if err != nil {
		return nil, fmt.Errorf("failed to store payment: %w", err)
	}
	l.logger.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"loan_id":    loanID,
		"amount":     amount.StringFixed(2),
	}).Info("Payment recorded")
	return &payment, nil
}
