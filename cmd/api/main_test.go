package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/mcclellann/lendbook/pkg/models"
	"github.com/mcclellann/lendbook/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC)

func setupTestServer(t *testing.T) (*Server, *mux.Router) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := t.TempDir()
	s, err := store.NewSQLiteStore(filepath.Join(dir, "api.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	server := NewServer(s, logger, time.UTC, dir)
	server.now = func() time.Time { return testNow }
	server.ledger.SetClock(server.now)
	return server, server.routes()
}

func do(t *testing.T, router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func createClient(t *testing.T, router *mux.Router, name string) models.Client {
	t.Helper()
	rr := do(t, router, "POST", "/clients", map[string]string{"name": name, "phone": "55501234"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[models.Client](t, rr)
}

func createLoan(t *testing.T, router *mux.Router, clientID string) models.Loan {
	t.Helper()
	rr := do(t, router, "POST", "/loans", map[string]any{
		"clientId":     clientID,
		"amount":       1000,
		"interestRate": 10,
		"terms":        10,
		"startDate":    "2024-05-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[models.Loan](t, rr)
}

func TestAPI_LoanLifecycle(t *testing.T) {
	_, router := setupTestServer(t)
	client := createClient(t, router, "Ana")
	loan := createLoan(t, router, client.ID)

	assert.Equal(t, models.LoanStatusActive, loan.Status)
	assert.True(t, loan.EndDate.Equal(time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)))

	rr := do(t, router, "POST", "/loans/"+loan.ID+"/payments", map[string]any{"amount": 1100})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	payment := decode[models.Payment](t, rr)
	assert.True(t, payment.Date.Equal(testNow))

	rr = do(t, router, "GET", "/loans/"+loan.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	details := decode[models.LoanDetails](t, rr)
	assert.True(t, details.Settled)
	assert.Equal(t, models.LoanStatusCompleted, details.Loan.Status)
	assert.True(t, details.Remaining.IsZero())

	rr = do(t, router, "GET", "/payments?loanId="+loan.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Payment](t, rr), 1)

	rr = do(t, router, "DELETE", "/loans/"+loan.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, "GET", "/payments?loanId="+loan.ID, nil)
	assert.Empty(t, decode[[]models.Payment](t, rr))

	rr = do(t, router, "GET", "/loans/"+loan.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_Validation(t *testing.T) {
	_, router := setupTestServer(t)
	client := createClient(t, router, "Ana")

	rr := do(t, router, "POST", "/loans", map[string]any{"clientId": client.ID, "amount": 100, "interestRate": 5, "terms": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, "POST", "/loans", map[string]any{"clientId": "ghost", "amount": 100, "interestRate": 5, "terms": 5})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, "POST", "/clients", map[string]string{"name": "A", "phone": "55501234"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	loan := createLoan(t, router, client.ID)
	rr = do(t, router, "POST", "/loans/"+loan.ID+"/payments", map[string]any{"amount": -1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, "GET", "/reports/collections?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_DeleteClient(t *testing.T) {
	_, router := setupTestServer(t)
	idle := createClient(t, router, "Ana")
	busy := createClient(t, router, "Beto")
	createLoan(t, router, busy.ID)

	rr := do(t, router, "DELETE", "/clients/"+idle.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, "DELETE", "/clients/"+busy.ID, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, router, "GET", "/clients/"+busy.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAPI_Reports(t *testing.T) {
	_, router := setupTestServer(t)
	client := createClient(t, router, "Ana")
	loan := createLoan(t, router, client.ID)
	do(t, router, "POST", "/loans/"+loan.ID+"/payments", map[string]any{"amount": 110, "date": "2024-05-02T12:00:00Z"})

	rr := do(t, router, "GET", "/reports/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	dash := decode[models.DashboardData](t, rr)
	assert.True(t, dash.TotalLoaned.Equal(decimal.NewFromInt(1000)))
	assert.True(t, dash.TotalCollected.Equal(decimal.NewFromInt(110)))
	assert.True(t, dash.TotalPending.Equal(decimal.NewFromInt(990)))
	assert.True(t, dash.DueToday.Equal(decimal.NewFromInt(110)))

	rr = do(t, router, "GET", "/reports/collections?date=2024-05-02", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	day := decode[models.CollectionsForDay](t, rr)
	require.Len(t, day.Clients, 1)
	assert.True(t, day.Clients[0].Paid)
	assert.Equal(t, "Ana", day.Clients[0].ClientName)

	rr = do(t, router, "GET", "/reports/collections", nil)
	day = decode[models.CollectionsForDay](t, rr)
	require.Len(t, day.Clients, 1)
	assert.False(t, day.Clients[0].Paid)

	rr = do(t, router, "GET", "/clients/summary", nil)
	summary := decode[[]models.ClientWithLoans](t, rr)
	require.Len(t, summary, 1)
	assert.Equal(t, 1, summary[0].ActiveLoans)
	assert.True(t, summary[0].TotalOwed.Equal(decimal.NewFromInt(990)))
}

func TestAPI_Export(t *testing.T) {
	server, router := setupTestServer(t)
	client := createClient(t, router, "Ana")
	createLoan(t, router, client.ID)

	rr := do(t, router, "GET", "/export", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "lendbook-backup-2024-05-03.json")
	doc, err := store.Decode(rr.Body)
	require.NoError(t, err)
	assert.Len(t, doc.Clients, 1)
	assert.Len(t, doc.Loans, 1)

	rr = do(t, router, "POST", "/export", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	path := decode[map[string]string](t, rr)["path"]
	assert.Equal(t, filepath.Join(server.exportDir, "lendbook-backup-2024-05-03.json"), path)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestAPI_User(t *testing.T) {
	_, router := setupTestServer(t)

	rr := do(t, router, "GET", "/user", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, "PUT", "/user", map[string]any{"pin": "1234", "useBiometrics": false})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, "PATCH", "/user", map[string]any{"useBiometrics": true})
	require.Equal(t, http.StatusOK, rr.Code)
	user := decode[models.User](t, rr)
	assert.Equal(t, "1234", user.Pin)
	assert.True(t, user.UseBiometrics)

	createClient(t, router, "Ana")
	rr = do(t, router, "DELETE", "/user", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, "GET", "/clients", nil)
	assert.Empty(t, decode[[]models.Client](t, rr))
	rr = do(t, router, "GET", "/user", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
