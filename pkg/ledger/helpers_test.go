package ledger

import (
	"io"
	"testing"
	"time"

	"github.com/mcclellann/lendbook/pkg/models"
	"github.com/mcclellann/lendbook/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestLedger(t *testing.T) (*Ledger, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore(quietLogger())
	l := NewLedger(s, quietLogger(), time.UTC)
	l.repo.now = func() time.Time { return day0 }
	l.reports.now = func() time.Time { return day0.Add(10 * time.Hour) }
	return l, s
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func mustClient(t *testing.T, l *Ledger, name string) *models.Client {
	t.Helper()
	c, err := l.CreateClient(name, "55501234")
	require.NoError(t, err)
	return c
}

func mustLoan(t *testing.T, l *Ledger, clientID string, amount, rate int64, terms int, start time.Time) *models.Loan {
	t.Helper()
	loan, err := l.CreateLoan(clientID, dec(amount), dec(rate), terms, start)
	require.NoError(t, err)
	return loan
}

func mustPayment(t *testing.T, l *Ledger, loanID string, amount int64, date time.Time) *models.Payment {
	t.Helper()
	p, err := l.RecordPayment(loanID, dec(amount), date)
	require.NoError(t, err)
	return p
}
