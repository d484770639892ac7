// Package server exposes the tracker over HTTP: a JSON API for bills,
// payments, the ledger, the audit trail, reports and backup.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/itfintrack/fintrack/internal/audit"
	"gitlab.com/itfintrack/fintrack/internal/backup"
	"gitlab.com/itfintrack/fintrack/internal/billing"
	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/ledger"
	"gitlab.com/itfintrack/fintrack/internal/logger"
	"gitlab.com/itfintrack/fintrack/internal/reports"
)

// Server wires the services behind the HTTP API.
type Server struct {
	db       database.Pool
	recorder *audit.Recorder
	billing  *billing.Service
	ledger   *ledger.Service
	reports  *reports.Service
	backup   *backup.Service
	log      zerolog.Logger
}

// New builds a Server over the shared pool.
func New(db database.Pool, recorder *audit.Recorder) *Server {
	return &Server{
		db:       db,
		recorder: recorder,
		billing:  billing.NewService(db, recorder),
		ledger:   ledger.NewService(db, recorder),
		reports:  reports.NewService(db),
		backup:   backup.NewService(db, recorder),
		log:      logger.Component("server"),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.actorMiddleware)

	r.Get("/api/health", s.handleHealth)

	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/logout", s.handleLogout)

	r.Route("/api/bills", func(r chi.Router) {
		r.Get("/", s.handleListBills)
		r.Post("/", s.handleCreateBill)
		r.Get("/{id}", s.handleGetBill)
		r.Get("/{id}/payments", s.handleListBillPayments)
		r.Post("/{id}/generate", s.handleGeneratePayment)
		r.Post("/{id}/activate", s.handleActivateBill)
		r.Post("/{id}/deactivate", s.handleDeactivateBill)
		r.Get("/{id}/next-due", s.handleNextDueDate)
	})
	r.Post("/api/payments/{id}/settle", s.handleSettlePayment)

	r.Route("/api/incomes", func(r chi.Router) {
		r.Get("/", s.handleListIncomes)
		r.Post("/", s.handleCreateIncome)
		r.Put("/{id}", s.handleUpdateIncome)
		r.Post("/{id}/soft-delete", s.handleSoftDeleteIncome)
		r.Post("/{id}/restore", s.handleRestoreIncome)
		r.Delete("/{id}", s.handleDeleteIncome)
	})

	r.Route("/api/expenses", func(r chi.Router) {
		r.Get("/", s.handleListExpenses)
		r.Post("/", s.handleCreateExpense)
		r.Put("/{id}", s.handleUpdateExpense)
		r.Post("/{id}/approve", s.handleApproveExpense)
		r.Post("/{id}/reject", s.handleRejectExpense)
		r.Post("/{id}/soft-delete", s.handleSoftDeleteExpense)
		r.Post("/{id}/restore", s.handleRestoreExpense)
		r.Get("/{id}/bills", s.handleListExpenseBills)
		r.Post("/{id}/bills", s.handleAttachExpenseBill)
	})
	r.Delete("/api/expense-bills/{id}", s.handleDetachExpenseBill)

	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", s.handleListCategories)
		r.Post("/", s.handleCreateCategory)
		r.Post("/{id}/soft-delete", s.handleSoftDeleteCategory)
	})
	r.Route("/api/vendors", func(r chi.Router) {
		r.Get("/", s.handleListVendors)
		r.Post("/", s.handleCreateVendor)
		r.Put("/{id}", s.handleUpdateVendor)
	})
	r.Route("/api/income-sources", func(r chi.Router) {
		r.Get("/", s.handleListIncomeSources)
		r.Post("/", s.handleCreateIncomeSource)
		r.Put("/{id}", s.handleUpdateIncomeSource)
	})
	r.Get("/api/users", s.handleListUsers)

	r.Route("/api/audit", func(r chi.Router) {
		r.Get("/", s.handleListAudit)
		r.Get("/entity/{kind}/{id}", s.handleAuditByEntity)
	})

	r.Get("/api/reports/summary", s.handleReportSummary)
	r.Get("/api/reports/chart", s.handleReportChart)

	r.Get("/api/backup", s.handleBackup)
	r.Post("/api/restore", s.handleRestore)

	return otelhttp.NewHandler(r, "fintrack")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, errors.New("database unreachable"))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("response encode failed")
	}
}

// respondError maps service errors onto HTTP statuses and a uniform body.
func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrValidation), errors.Is(err, ledger.ErrValidation):
		s.respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, billing.ErrNotPending):
		s.respondError(w, http.StatusConflict, err)
	case errors.Is(err, billing.ErrPermission), errors.Is(err, ledger.ErrPermission):
		s.respondError(w, http.StatusForbidden, err)
	case isNotFound(err):
		s.respondError(w, http.StatusNotFound, err)
	default:
		s.log.Error().Err(err).Msg("request failed")
		s.respondError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
