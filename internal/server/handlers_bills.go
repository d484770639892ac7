package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"gitlab.com/itfintrack/fintrack/internal/billing"
	"gitlab.com/itfintrack/fintrack/internal/models"
	"gitlab.com/itfintrack/fintrack/internal/repository"
)

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// parseDate parses a required yyyy-mm-dd value.
func parseDate(value string) (time.Time, error) {
	return time.Parse(models.DateFormat, value)
}

type createBillRequest struct {
	Name        string          `json:"name"`
	CategoryID  int64           `json:"category_id"`
	VendorID    *int64          `json:"vendor_id"`
	BaseAmount  decimal.Decimal `json:"base_amount"`
	Frequency   string          `json:"frequency"`
	BillingDay  int             `json:"billing_day"`
	StartDate   string          `json:"start_date"`
	Description string          `json:"description"`
	IsActive    *bool           `json:"is_active"`
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid start_date: %w", err))
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	bill, first, err := s.billing.CreateBill(r.Context(), actorFrom(r), billing.CreateBillInput{
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		VendorID:    req.VendorID,
		BaseAmount:  req.BaseAmount,
		Frequency:   req.Frequency,
		BillingDay:  req.BillingDay,
		StartDate:   startDate,
		Description: req.Description,
		IsActive:    active,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{
		"bill":          bill,
		"first_payment": first,
	})
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	bills, err := repository.NewRecurringBillRepository(s.db).List(r.Context(), activeOnly)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, bills)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	bill, err := repository.NewRecurringBillRepository(s.db).GetByID(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	overdue, err := s.billing.IsBillOverdue(r.Context(), bill, time.Now().UTC())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	months, err := s.billing.RecentPeriods(r.Context(), bill.ID, 6, time.Now().UTC())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"bill":          bill,
		"overdue":       overdue,
		"recent_months": months,
	})
}

func (s *Server) handleListBillPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	payments, err := repository.NewBillPaymentRepository(s.db).ListByBill(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, payments)
}

func (s *Server) handleGeneratePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	payment, created, err := s.billing.GeneratePayment(r.Context(), actorFrom(r), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, map[string]any{
		"payment": payment,
		"created": created,
	})
}

func (s *Server) handleActivateBill(w http.ResponseWriter, r *http.Request) {
	s.setBillActive(w, r, true)
}

func (s *Server) handleDeactivateBill(w http.ResponseWriter, r *http.Request) {
	s.setBillActive(w, r, false)
}

func (s *Server) setBillActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	bill, err := s.billing.SetBillActive(r.Context(), actorFrom(r), id, active)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, bill)
}

func (s *Server) handleNextDueDate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	bill, err := repository.NewRecurringBillRepository(s.db).GetByID(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	next, err := s.billing.NextDueDate(r.Context(), bill)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"next_due_date": next.Format(models.DateFormat),
	})
}

type settleRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PaidDate       string          `json:"paid_date"`
	FundingType    string          `json:"funding_type"`
	Notes          string          `json:"notes"`
	LinkedIncomeID *int64          `json:"linked_income_id"`
}

func (s *Server) handleSettlePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	paidDate, err := parseDate(req.PaidDate)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid paid_date: %w", err))
		return
	}

	payment, err := s.billing.Settle(r.Context(), actorFrom(r), id, billing.SettleInput{
		Amount:         req.Amount,
		PaidDate:       paidDate,
		FundingType:    req.FundingType,
		Notes:          req.Notes,
		LinkedIncomeID: req.LinkedIncomeID,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, payment)
}
