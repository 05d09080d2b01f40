package ledger

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/lendbook/pkg/models"
	"github.com/mcclellann/lendbook/pkg/store"
	"github.com/sirupsen/logrus"
)

// ErrDanglingReference is returned when an entity points at a parent that does
// not exist.
var ErrDanglingReference = errors.New("dangling reference")

// Repository is typed CRUD over the ledger document. Every call performs a full
// load-modify-save cycle against the store, so calls are serialized by order.
//
// The repository trusts its inputs: amounts, terms, rates and referential
// integrity are the caller's responsibility. In particular DeleteClient removes
// the client even if loans still reference it; callers must check first (see
// Ledger.DeleteClient).
//
// Updates and deletes of unknown ids are silent no-ops. Mutations return the
// store's write error, already logged by the store.
type Repository struct {
	storage store.Storage
	logger  *logrus.Logger
	now     func() time.Time
	newID   func() string
}

// NewRepository creates a Repository over the given Storage.
func NewRepository(s store.Storage, logger *logrus.Logger) *Repository {
	return &Repository{
		storage: s,
		logger:  logger,
		now:     time.Now,
		newID:   newID,
	}
}

// newID returns a time-ordered UUID (millisecond timestamp plus random bits),
// unique without any coordination.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// mutate applies fn to a freshly loaded document and saves it when fn reports
// a change.
func (r *Repository) mutate(op string, fn func(doc *models.Document) bool) error {
	doc := r.storage.Load()
	if !fn(doc) {
		return nil
	}
	if err := r.storage.Save(doc); err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

// Snapshot returns the whole persisted document, e.g. for export.
func (r *Repository) Snapshot() *models.Document {
	return r.storage.Load()
}

// AddClient assigns id and creation time, then persists the client.
func (r *Repository) AddClient(client models.Client) (models.Client, error) {
	client.ID = r.newID()
	client.CreatedAt = r.now()
	err := r.mutate("add client", func(doc *models.Document) bool {
		doc.Clients = append(doc.Clients, client)
		return true
	})
	return client, err
}

func (r *Repository) GetClients() []models.Client {
	return r.storage.Load().Clients
}

func (r *Repository) GetClient(id string) (models.Client, bool) {
	clients := r.storage.Load().Clients
	i := slices.IndexFunc(clients, func(c models.Client) bool { return c.ID == id })
	if i < 0 {
		return models.Client{}, false
	}
	return clients[i], true
}

func (r *Repository) UpdateClient(client models.Client) error {
	return r.mutate("update client", func(doc *models.Document) bool {
		i := slices.IndexFunc(doc.Clients, func(c models.Client) bool { return c.ID == client.ID })
		if i < 0 {
			return false
		}
		doc.Clients[i] = client
		return true
	})
}

// DeleteClient performs no referential check.
func (r *Repository) DeleteClient(id string) error {
	return r.mutate("delete client", func(doc *models.Document) bool {
		n := len(doc.Clients)
		doc.Clients = slices.DeleteFunc(doc.Clients, func(c models.Client) bool { return c.ID == id })
		return len(doc.Clients) != n
	})
}

// AddLoan assigns id and creation time, then persists the loan. The loan must
// already be validated.
func (r *Repository) AddLoan(loan models.Loan) (models.Loan, error) {
	loan.ID = r.newID()
	loan.CreatedAt = r.now()
	err := r.mutate("add loan", func(doc *models.Document) bool {
		doc.Loans = append(doc.Loans, loan)
		return true
	})
	return loan, err
}

// GetLoans returns every loan, or only the client's loans when clientID is set.
func (r *Repository) GetLoans(clientID string) []models.Loan {
	loans := r.storage.Load().Loans
	if clientID == "" {
		return loans
	}
	return slices.DeleteFunc(loans, func(l models.Loan) bool { return l.ClientID != clientID })
}

func (r *Repository) GetLoan(id string) (models.Loan, bool) {
	loans := r.storage.Load().Loans
	i := slices.IndexFunc(loans, func(l models.Loan) bool { return l.ID == id })
	if i < 0 {
		return models.Loan{}, false
	}
	return loans[i], true
}

func (r *Repository) UpdateLoan(loan models.Loan) error {
	return r.mutate("update loan", func(doc *models.Document) bool {
		i := slices.IndexFunc(doc.Loans, func(l models.Loan) bool { return l.ID == loan.ID })
		if i < 0 {
			return false
		}
		doc.Loans[i] = loan
		return true
	})
}

// DeleteLoan removes the loan and all of its payments in a single write.
func (r *Repository) DeleteLoan(id string) error {
	return r.mutate("delete loan", func(doc *models.Document) bool {
		loans, payments := len(doc.Loans), len(doc.Payments)
		doc.Loans = slices.DeleteFunc(doc.Loans, func(l models.Loan) bool { return l.ID == id })
		doc.Payments = slices.DeleteFunc(doc.Payments, func(p models.Payment) bool { return p.LoanID == id })
		return len(doc.Loans) != loans || len(doc.Payments) != payments
	})
}

func (r *Repository) AddPayment(payment models.Payment) (models.Payment, error) {
	payment.ID = r.newID()
	payment.CreatedAt = r.now()
	err := r.mutate("add payment", func(doc *models.Document) bool {
		doc.Payments = append(doc.Payments, payment)
		return true
	})
	return payment, err
}

// GetPayments returns every payment, or only the loan's payments when loanID is set.
func (r *Repository) GetPayments(loanID string) []models.Payment {
	payments := r.storage.Load().Payments
	if loanID == "" {
		return payments
	}
	return slices.DeleteFunc(payments, func(p models.Payment) bool { return p.LoanID != loanID })
}

func (r *Repository) GetPayment(id string) (models.Payment, bool) {
	payments := r.storage.Load().Payments
	i := slices.IndexFunc(payments, func(p models.Payment) bool { return p.ID == id })
	if i < 0 {
		return models.Payment{}, false
	}
	return payments[i], true
}

func (r *Repository) UpdatePayment(payment models.Payment) error {
	return r.mutate("update payment", func(doc *models.Document) bool {
		i := slices.IndexFunc(doc.Payments, func(p models.Payment) bool { return p.ID == payment.ID })
		if i < 0 {
			return false
		}
		doc.Payments[i] = payment
		return true
	})
}

func (r *Repository) DeletePayment(id string) error {
	return r.mutate("delete payment", func(doc *models.Document) bool {
		n := len(doc.Payments)
		doc.Payments = slices.DeleteFunc(doc.Payments, func(p models.Payment) bool { return p.ID == id })
		return len(doc.Payments) != n
	})
}

// CheckClientRef reports ErrDanglingReference when no client has clientID.
func (r *Repository) CheckClientRef(clientID string) error {
	if _, ok := r.GetClient(clientID); !ok {
		return fmt.Errorf("client %q: %w", clientID, ErrDanglingReference)
	}
	return nil
}

// CheckLoanRef reports ErrDanglingReference when no loan has loanID.
func (r *Repository) CheckLoanRef(loanID string) error {
	if _, ok := r.GetLoan(loanID); !ok {
		return fmt.Errorf("loan %q: %w", loanID, ErrDanglingReference)
	}
	return nil
}

// GetUser returns the stored credential, or nil when none is set.
func (r *Repository) GetUser() *models.User {
	return r.storage.Load().User
}

func (r *Repository) SetUser(user models.User) error {
	return r.mutate("set user", func(doc *models.Document) bool {
		doc.User = &user
		return true
	})
}

// UpdateUser merges patch into the stored user, starting from an empty
// credential when none exists.
func (r *Repository) UpdateUser(patch models.UserPatch) error {
	return r.mutate("update user", func(doc *models.Document) bool {
		if doc.User == nil {
			doc.User = &models.User{}
		}
		if patch.Pin != nil {
			doc.User.Pin = *patch.Pin
		}
		if patch.UseBiometrics != nil {
			doc.User.UseBiometrics = *patch.UseBiometrics
		}
		return true
	})
}

// DeleteUserData resets storage to an empty document, wiping the whole ledger.
func (r *Repository) DeleteUserData() error {
	if err := r.storage.Save(models.NewDocument(r.now())); err != nil {
		return fmt.Errorf("failed to delete user data: %w", err)
	}
	r.logger.Warn("All ledger data deleted")
	return nil
}
