package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/mcclellann/lendbook/pkg/config"
	"github.com/mcclellann/lendbook/pkg/ledger"
	"github.com/mcclellann/lendbook/pkg/models"
	"github.com/mcclellann/lendbook/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Server exposes the ledger over HTTP.
type Server struct {
	ledger    *ledger.Ledger
	storage   store.Storage // Keep a reference to the storage to close it
	logger    *logrus.Logger
	loc       *time.Location
	exportDir string
	now       func() time.Time

	// The ledger is single-writer: every request runs a full
	// load-modify-save cycle, so requests are handled one at a time.
	mu sync.Mutex
}

func NewServer(s store.Storage, logger *logrus.Logger, loc *time.Location, exportDir string) *Server {
	return &Server{
		ledger:    ledger.NewLedger(s, logger, loc),
		storage:   s,
		logger:    logger,
		loc:       loc,
		exportDir: exportDir,
		now:       time.Now,
	}
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.serialize)

	router.HandleFunc("/clients", s.listClientsHandler).Methods("GET")
	router.HandleFunc("/clients", s.createClientHandler).Methods("POST")
	router.HandleFunc("/clients/summary", s.clientsSummaryHandler).Methods("GET")
	router.HandleFunc("/clients/{id}", s.getClientHandler).Methods("GET")
	router.HandleFunc("/clients/{id}", s.updateClientHandler).Methods("PUT")
	router.HandleFunc("/clients/{id}", s.deleteClientHandler).Methods("DELETE")

	router.HandleFunc("/loans", s.listLoansHandler).Methods("GET")
	router.HandleFunc("/loans", s.createLoanHandler).Methods("POST")
	router.HandleFunc("/loans/{id}", s.getLoanHandler).Methods("GET")
	router.HandleFunc("/loans/{id}", s.deleteLoanHandler).Methods("DELETE")
	router.HandleFunc("/loans/{id}/payments", s.recordPaymentHandler).Methods("POST")
	router.HandleFunc("/payments", s.listPaymentsHandler).Methods("GET")

	router.HandleFunc("/reports/dashboard", s.dashboardHandler).Methods("GET")
	router.HandleFunc("/reports/collections", s.collectionsHandler).Methods("GET")

	router.HandleFunc("/export", s.exportHandler).Methods("GET")
	router.HandleFunc("/export", s.exportFileHandler).Methods("POST")

	router.HandleFunc("/user", s.getUserHandler).Methods("GET")
	router.HandleFunc("/user", s.setUserHandler).Methods("PUT")
	router.HandleFunc("/user", s.updateUserHandler).Methods("PATCH")
	router.HandleFunc("/user", s.deleteUserDataHandler).Methods("DELETE")
	return router
}

func (s *Server) serialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps ledger errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrLoanNotFound),
		errors.Is(err, ledger.ErrClientNotFound),
		errors.Is(err, ledger.ErrDanglingReference):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrClientHasLoans):
		status = http.StatusConflict
	case errors.Is(err, models.ErrClientNameInvalid),
		errors.Is(err, models.ErrClientPhoneInvalid),
		errors.Is(err, models.ErrLoanAmountInvalid),
		errors.Is(err, models.ErrLoanRateInvalid),
		errors.Is(err, models.ErrLoanTermsInvalid),
		errors.Is(err, models.ErrPaymentAmountInvalid):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}
	http.Error(w, err.Error(), status)
}

type clientRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (s *Server) listClientsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Repository().GetClients())
}

func (s *Server) clientsSummaryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Reports().ClientsWithLoans())
}

func (s *Server) createClientHandler(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	client, err := s.ledger.CreateClient(req.Name, req.Phone)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (s *Server) getClientHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.ledger.Repository().GetClient(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, ledger.ErrClientNotFound)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *Server) updateClientHandler(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	client, err := s.ledger.UpdateClient(mux.Vars(r)["id"], req.Name, req.Phone)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *Server) deleteClientHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteClient(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Repository().GetLoans(r.URL.Query().Get("clientId")))
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID     string          `json:"clientId"`
		Amount       decimal.Decimal `json:"amount"`
		InterestRate decimal.Decimal `json:"interestRate"`
		Terms        int             `json:"terms"`
		StartDate    *time.Time      `json:"startDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := ledger.StartOfDay(s.now(), s.loc)
	if req.StartDate != nil {
		start = *req.StartDate
	}

	loan, err := s.ledger.CreateLoan(req.ClientID, req.Amount, req.InterestRate, req.Terms, start)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// getLoanHandler returns the loan details, settling the loan when its payments
// cover the total to repay.
func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	details, err := s.ledger.Reports().LoanDetails(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteLoan(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Date   *time.Time      `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date := s.now()
	if req.Date != nil {
		date = *req.Date
	}

	payment, err := s.ledger.RecordPayment(mux.Vars(r)["id"], req.Amount, date)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Repository().GetPayments(r.URL.Query().Get("loanId")))
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Reports().Dashboard())
}

// collectionsHandler takes an optional ?date=YYYY-MM-DD, defaulting to today.
func (s *Server) collectionsHandler(w http.ResponseWriter, r *http.Request) {
	day := s.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, s.loc)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid date %q", raw), http.StatusBadRequest)
			return
		}
		day = parsed
	}
	writeJSON(w, http.StatusOK, s.ledger.Reports().CollectionsForDay(day))
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", store.BackupFileName(s.now())))
	if err := store.Export(w, s.ledger.Repository().Snapshot()); err != nil {
		s.logger.WithError(err).Error("Export failed")
	}
}

func (s *Server) exportFileHandler(w http.ResponseWriter, r *http.Request) {
	path, err := store.ExportFile(s.exportDir, s.ledger.Repository().Snapshot(), s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.WithField("path", path).Info("Backup written")
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}

func (s *Server) getUserHandler(w http.ResponseWriter, r *http.Request) {
	user := s.ledger.Repository().GetUser()
	if user == nil {
		http.Error(w, "user not configured", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) setUserHandler(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.ledger.Repository().SetUser(user); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	var patch models.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.ledger.Repository().UpdateUser(patch); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Repository().GetUser())
}

func (s *Server) deleteUserDataHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Repository().DeleteUserData(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cfg.NewLogger()

	sqliteStore, err := store.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize SQLite store: %v", err)
	}
	defer sqliteStore.Close()

	server := NewServer(sqliteStore, logger, cfg.Location, cfg.ExportDir)

	logger.WithField("addr", cfg.HTTPAddr).Info("Server starting")
	if err := http.ListenAndServe(cfg.HTTPAddr, server.routes()); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}
