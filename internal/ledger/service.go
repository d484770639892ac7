// Package ledger implements income and expense operations: create, update,
// soft delete, restore and the expense approval workflow. Every mutation is
// audit-captured through the Observe/Commit pattern.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gitlab.com/itfintrack/fintrack/internal/audit"
	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/logger"
	"gitlab.com/itfintrack/fintrack/internal/models"
	"gitlab.com/itfintrack/fintrack/internal/repository"
)

var (
	// ErrValidation marks user-correctable input errors.
	ErrValidation = errors.New("validation failed")

	// ErrPermission is returned when the actor's role does not allow the
	// operation.
	ErrPermission = errors.New("permission denied")
)

// Service handles ledger mutations.
type Service struct {
	db       database.PGXDB
	recorder *audit.Recorder
	log      zerolog.Logger
}

// NewService creates a ledger Service.
func NewService(db database.PGXDB, recorder *audit.Recorder) *Service {
	return &Service{
		db:       db,
		recorder: recorder,
		log:      logger.Component("ledger"),
	}
}

func roleCanEdit(role string) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}

func roleCanApprove(role string) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}

func roleCanDelete(role string) bool {
	return role == models.RoleAdmin
}

func requireUser(actor audit.ActorContext) (int64, error) {
	if actor.UserID == nil {
		return 0, fmt.Errorf("%w: an authenticated user is required", ErrValidation)
	}
	return *actor.UserID, nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IncomeInput holds the writable fields of an income record.
type IncomeInput struct {
	SourceID    *int64
	Amount      decimal.Decimal
	Date        time.Time
	Description string
}

func (in *IncomeInput) validate() error {
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	return nil
}

// CreateIncome validates and records a new income.
func (s *Service) CreateIncome(ctx context.Context, actor audit.ActorContext, input IncomeInput) (*models.Income, error) {
	userID, err := requireUser(actor)
	if err != nil {
		return nil, err
	}
	if !roleCanEdit(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot create income", ErrPermission, actor.Role)
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	income := &models.Income{
		SourceID:    input.SourceID,
		Amount:      input.Amount,
		Date:        truncateToDate(input.Date),
		Description: input.Description,
		CreatedBy:   userID,
	}
	if err := repository.NewIncomeRepository(s.db).Create(ctx, income); err != nil {
		return nil, err
	}
	s.recorder.Observe(models.EntityIncome, nil).Commit(ctx, actor, income)
	return income, nil
}

// UpdateIncome applies new field values to an income record.
func (s *Service) UpdateIncome(ctx context.Context, actor audit.ActorContext, id int64, input IncomeInput) (*models.Income, error) {
	if !roleCanEdit(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot edit income", ErrPermission, actor.Role)
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	incomes := repository.NewIncomeRepository(s.db)
	income, err := incomes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	change := s.recorder.Observe(models.EntityIncome, income)
	income.SourceID = input.SourceID
	income.Amount = input.Amount
	income.Date = truncateToDate(input.Date)
	income.Description = input.Description
	if err := incomes.Update(ctx, income); err != nil {
		return nil, err
	}
	change.Commit(ctx, actor, income)
	return income, nil
}

// SetIncomeDeleted soft-deletes or restores an income record.
func (s *Service) SetIncomeDeleted(ctx context.Context, actor audit.ActorContext, id int64, deleted bool) (*models.Income, error) {
	if !roleCanDelete(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot delete income", ErrPermission, actor.Role)
	}

	incomes := repository.NewIncomeRepository(s.db)
	income, err := incomes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	change := s.recorder.Observe(models.EntityIncome, income)
	income.IsSoftDeleted = deleted
	if err := incomes.Update(ctx, income); err != nil {
		return nil, err
	}
	change.Commit(ctx, actor, income)
	return income, nil
}

// DeleteIncome permanently removes an income record. The deletion is
// captured before the row disappears.
func (s *Service) DeleteIncome(ctx context.Context, actor audit.ActorContext, id int64) error {
	if !roleCanDelete(actor.Role) {
		return fmt.Errorf("%w: role %q cannot delete income", ErrPermission, actor.Role)
	}

	incomes := repository.NewIncomeRepository(s.db)
	income, err := incomes.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.recorder.RecordDelete(ctx, actor, models.EntityIncome, income)
	return incomes.Delete(ctx, id)
}

// ExpenseInput holds the writable fields of an expense record.
type ExpenseInput struct {
	CategoryID     int64
	VendorID       *int64
	LinkedIncomeID *int64
	Amount         decimal.Decimal
	Date           time.Time
	Description    string
	Purpose        string
	InvoiceNumber  string
}

func (in *ExpenseInput) validate() error {
	if in.CategoryID == 0 {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	return nil
}

// CreateExpense validates and records a new expense in pending status.
func (s *Service) CreateExpense(ctx context.Context, actor audit.ActorContext, input ExpenseInput) (*models.Expense, error) {
	userID, err := requireUser(actor)
	if err != nil {
		return nil, err
	}
	if !roleCanEdit(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot create expenses", ErrPermission, actor.Role)
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		CategoryID:     input.CategoryID,
		VendorID:       input.VendorID,
		LinkedIncomeID: input.LinkedIncomeID,
		Amount:         input.Amount,
		Date:           truncateToDate(input.Date),
		Description:    input.Description,
		Purpose:        input.Purpose,
		InvoiceNumber:  input.InvoiceNumber,
		Status:         models.ExpenseStatusPending,
		CreatedBy:      userID,
	}
	if err := repository.NewExpenseRepository(s.db).Create(ctx, expense); err != nil {
		return nil, err
	}
	s.recorder.Observe(models.EntityExpense, nil).Commit(ctx, actor, expense)
	return expense, nil
}

// UpdateExpense applies new field values to an expense record.
func (s *Service) UpdateExpense(ctx context.Context, actor audit.ActorContext, id int64, input ExpenseInput) (*models.Expense, error) {
	if !roleCanEdit(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot edit expenses", ErrPermission, actor.Role)
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	expenses := repository.NewExpenseRepository(s.db)
	expense, err := expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	change := s.recorder.Observe(models.EntityExpense, expense)
	expense.CategoryID = input.CategoryID
	expense.VendorID = input.VendorID
	expense.LinkedIncomeID = input.LinkedIncomeID
	expense.Amount = input.Amount
	expense.Date = truncateToDate(input.Date)
	expense.Description = input.Description
	expense.Purpose = input.Purpose
	expense.InvoiceNumber = input.InvoiceNumber
	if err := expenses.Update(ctx, expense); err != nil {
		return nil, err
	}
	change.Commit(ctx, actor, expense)
	return expense, nil
}

// ApproveExpense marks a pending expense approved by the actor.
func (s *Service) ApproveExpense(ctx context.Context, actor audit.ActorContext, id int64) (*models.Expense, error) {
	userID, err := requireUser(actor)
	if err != nil {
		return nil, err
	}
	if !roleCanApprove(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot approve expenses", ErrPermission, actor.Role)
	}

	expenses := repository.NewExpenseRepository(s.db)
	expense, err := expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense.Status != models.ExpenseStatusPending {
		return nil, fmt.Errorf("%w: expense %d has status %q", ErrValidation, id, expense.Status)
	}

	change := s.recorder.Observe(models.EntityExpense, expense)
	now := time.Now().UTC()
	expense.Status = models.ExpenseStatusApproved
	expense.ApprovedBy = &userID
	expense.ApprovedAt = &now
	if err := expenses.Update(ctx, expense); err != nil {
		return nil, err
	}
	change.Commit(ctx, actor, expense)
	return expense, nil
}

// RejectExpense marks a pending expense rejected with a reason.
func (s *Service) RejectExpense(ctx context.Context, actor audit.ActorContext, id int64, reason string) (*models.Expense, error) {
	userID, err := requireUser(actor)
	if err != nil {
		return nil, err
	}
	if !roleCanApprove(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot reject expenses", ErrPermission, actor.Role)
	}

	expenses := repository.NewExpenseRepository(s.db)
	expense, err := expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense.Status != models.ExpenseStatusPending {
		return nil, fmt.Errorf("%w: expense %d has status %q", ErrValidation, id, expense.Status)
	}

	change := s.recorder.Observe(models.EntityExpense, expense)
	now := time.Now().UTC()
	expense.Status = models.ExpenseStatusRejected
	expense.ApprovedBy = &userID
	expense.ApprovedAt = &now
	expense.RejectionReason = reason
	if err := expenses.Update(ctx, expense); err != nil {
		return nil, err
	}
	change.Commit(ctx, actor, expense)
	return expense, nil
}

// SetExpenseDeleted soft-deletes or restores an expense record.
func (s *Service) SetExpenseDeleted(ctx context.Context, actor audit.ActorContext, id int64, deleted bool) (*models.Expense, error) {
	if !roleCanDelete(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot delete expenses", ErrPermission, actor.Role)
	}

	expenses := repository.NewExpenseRepository(s.db)
	expense, err := expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	change := s.recorder.Observe(models.EntityExpense, expense)
	expense.IsSoftDeleted = deleted
	if err := expenses.Update(ctx, expense); err != nil {
		return nil, err
	}
	change.Commit(ctx, actor, expense)
	return expense, nil
}

// AttachBill records a bill/invoice attachment on an expense. Only the file
// metadata is stored; the caller is responsible for the bytes.
func (s *Service) AttachBill(ctx context.Context, actor audit.ActorContext, bill *models.ExpenseBill) error {
	userID, err := requireUser(actor)
	if err != nil {
		return err
	}
	if !roleCanEdit(actor.Role) {
		return fmt.Errorf("%w: role %q cannot attach bills", ErrPermission, actor.Role)
	}
	if bill.ExpenseID == 0 {
		return fmt.Errorf("%w: expense reference is required", ErrValidation)
	}

	bill.UploadedBy = userID
	if err := repository.NewExpenseBillRepository(s.db).Create(ctx, bill); err != nil {
		return err
	}
	s.recorder.Observe(models.EntityExpenseBill, nil).Commit(ctx, actor, bill)
	return nil
}

// DetachBill permanently removes a bill attachment record.
func (s *Service) DetachBill(ctx context.Context, actor audit.ActorContext, id int64) error {
	if !roleCanDelete(actor.Role) {
		return fmt.Errorf("%w: role %q cannot delete bill attachments", ErrPermission, actor.Role)
	}

	bills := repository.NewExpenseBillRepository(s.db)
	bill, err := bills.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.recorder.RecordDelete(ctx, actor, models.EntityExpenseBill, bill)
	return bills.Delete(ctx, id)
}
