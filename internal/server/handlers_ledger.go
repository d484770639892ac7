package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"gitlab.com/itfintrack/fintrack/internal/ledger"
	"gitlab.com/itfintrack/fintrack/internal/models"
	"gitlab.com/itfintrack/fintrack/internal/repository"
)

type incomeRequest struct {
	SourceID    *int64          `json:"source_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
}

func (req *incomeRequest) toInput() (ledger.IncomeInput, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return ledger.IncomeInput{}, fmt.Errorf("invalid date: %w", err)
	}
	return ledger.IncomeInput{
		SourceID:    req.SourceID,
		Amount:      req.Amount,
		Date:        date,
		Description: req.Description,
	}, nil
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	incomes, err := repository.NewIncomeRepository(s.db).List(r.Context(), limit)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, incomes)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	income, err := s.ledger.CreateIncome(r.Context(), actorFrom(r), input)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, income)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req incomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	income, err := s.ledger.UpdateIncome(r.Context(), actorFrom(r), id, input)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, income)
}

func (s *Server) handleSoftDeleteIncome(w http.ResponseWriter, r *http.Request) {
	s.setIncomeDeleted(w, r, true)
}

func (s *Server) handleRestoreIncome(w http.ResponseWriter, r *http.Request) {
	s.setIncomeDeleted(w, r, false)
}

func (s *Server) setIncomeDeleted(w http.ResponseWriter, r *http.Request, deleted bool) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	income, err := s.ledger.SetIncomeDeleted(r.Context(), actorFrom(r), id, deleted)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, income)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ledger.DeleteIncome(r.Context(), actorFrom(r), id); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type expenseRequest struct {
	CategoryID     int64           `json:"category_id"`
	VendorID       *int64          `json:"vendor_id"`
	LinkedIncomeID *int64          `json:"linked_income_id"`
	Amount         decimal.Decimal `json:"amount"`
	Date           string          `json:"date"`
	Description    string          `json:"description"`
	Purpose        string          `json:"purpose"`
	InvoiceNumber  string          `json:"invoice_number"`
}

func (req *expenseRequest) toInput() (ledger.ExpenseInput, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return ledger.ExpenseInput{}, fmt.Errorf("invalid date: %w", err)
	}
	return ledger.ExpenseInput{
		CategoryID:     req.CategoryID,
		VendorID:       req.VendorID,
		LinkedIncomeID: req.LinkedIncomeID,
		Amount:         req.Amount,
		Date:           date,
		Description:    req.Description,
		Purpose:        req.Purpose,
		InvoiceNumber:  req.InvoiceNumber,
	}, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.ExpenseStatusPending
	}
	expenses, err := repository.NewExpenseRepository(s.db).ListByStatus(r.Context(), status, 100)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := s.ledger.CreateExpense(r.Context(), actorFrom(r), input)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := s.ledger.UpdateExpense(r.Context(), actorFrom(r), id, input)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, expense)
}

func (s *Server) handleApproveExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := s.ledger.ApproveExpense(r.Context(), actorFrom(r), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, expense)
}

func (s *Server) handleRejectExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := s.ledger.RejectExpense(r.Context(), actorFrom(r), id, req.Reason)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, expense)
}

func (s *Server) handleSoftDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.setExpenseDeleted(w, r, true)
}

func (s *Server) handleRestoreExpense(w http.ResponseWriter, r *http.Request) {
	s.setExpenseDeleted(w, r, false)
}

func (s *Server) handleListExpenseBills(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	bills, err := repository.NewExpenseBillRepository(s.db).ListByExpense(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, bills)
}

func (s *Server) handleAttachExpenseBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		StoredFilename   string `json:"stored_filename"`
		OriginalFilename string `json:"original_filename"`
		Description      string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	bill := &models.ExpenseBill{
		ExpenseID:        id,
		StoredFilename:   req.StoredFilename,
		OriginalFilename: req.OriginalFilename,
		Description:      req.Description,
	}
	if err := s.ledger.AttachBill(r.Context(), actorFrom(r), bill); err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, bill)
}

func (s *Server) handleDetachExpenseBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ledger.DetachBill(r.Context(), actorFrom(r), id); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setExpenseDeleted(w http.ResponseWriter, r *http.Request, deleted bool) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := s.ledger.SetExpenseDeleted(r.Context(), actorFrom(r), id, deleted)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, expense)
}
