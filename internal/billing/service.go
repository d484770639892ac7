package billing

import (
	"context"
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

// DB is the database handle the billing service needs: direct queries plus
// the ability to open the settlement transaction.
type DB interface {
	database.PGXDB
	database.TxBeginner
}

// Service drives recurring bill state transitions. All mutations are
// audit-captured; settlement and the period roll-forward run in one
// transaction so they commit or roll back together.
type Service struct {
	db       DB
	recorder *audit.Recorder
	log      zerolog.Logger
}

// NewService creates a billing Service.
func NewService(db DB, recorder *audit.Recorder) *Service {
	return &Service{
		db:       db,
		recorder: recorder,
		log:      logger.Component("billing"),
	}
}

func roleCanEdit(role string) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}

// requireEditor rejects anonymous actors and roles without edit rights.
// Every billing mutation goes through it.
func requireEditor(actor audit.ActorContext) error {
	if actor.UserID == nil {
		return fmt.Errorf("%w: an authenticated user is required", ErrValidation)
	}
	if !roleCanEdit(actor.Role) {
		return fmt.Errorf("%w: role %q cannot manage bills", ErrPermission, actor.Role)
	}
	return nil
}

// CreateBillInput holds the fields for a new recurring bill.
type CreateBillInput struct {
	Name        string
	CategoryID  int64
	VendorID    *int64
	BaseAmount  decimal.Decimal
	Frequency   string
	BillingDay  int
	StartDate   time.Time
	Description string
	IsActive    bool
}

func (in *CreateBillInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: bill name is required", ErrValidation)
	}
	if in.CategoryID == 0 {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if !in.BaseAmount.IsPositive() {
		return fmt.Errorf("%w: base amount must be positive", ErrValidation)
	}
	if _, err := models.FrequencyMonths(in.Frequency); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := ValidateBillingDay(in.BillingDay); err != nil {
		return err
	}
	if in.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrValidation)
	}
	return nil
}

// CreateBill validates and creates a recurring bill. Active bills get their
// first pending payment immediately. Returns the bill and the first payment
// (nil for inactive bills).
func (s *Service) CreateBill(ctx context.Context, actor audit.ActorContext, input CreateBillInput) (*models.RecurringBill, *models.BillPayment, error) {
	if err := requireEditor(actor); err != nil {
		return nil, nil, err
	}
	if err := input.validate(); err != nil {
		return nil, nil, err
	}

	bill := &models.RecurringBill{
		Name:        input.Name,
		CategoryID:  input.CategoryID,
		VendorID:    input.VendorID,
		BaseAmount:  input.BaseAmount,
		Frequency:   input.Frequency,
		BillingDay:  input.BillingDay,
		StartDate:   truncateToDate(input.StartDate),
		Description: input.Description,
		IsActive:    input.IsActive,
		CreatedBy:   actorUserID(actor, 0),
	}

	bills := repository.NewRecurringBillRepository(s.db)
	if err := bills.Create(ctx, bill); err != nil {
		return nil, nil, err
	}
	s.recorder.Observe(models.EntityRecurringBill, nil).Commit(ctx, actor, bill)

	var first *models.BillPayment
	if bill.IsActive {
		payment, created, err := s.createPending(ctx, s.db, actor, bill)
		if err != nil {
			return bill, nil, err
		}
		first = payment
		if created {
			s.recorder.Observe(models.EntityBillPayment, nil).Commit(ctx, actor, payment)
		}
	}
	return bill, first, nil
}

// SetBillActive toggles a bill's active flag. Reactivating a bill generates
// its next pending payment when none exists; deactivating stops generation
// but leaves any open payment untouched.
func (s *Service) SetBillActive(ctx context.Context, actor audit.ActorContext, billID int64, active bool) (*models.RecurringBill, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}

	bills := repository.NewRecurringBillRepository(s.db)
	bill, err := bills.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.IsSoftDeleted {
		return nil, fmt.Errorf("%w: bill %d is deleted", ErrValidation, billID)
	}

	if bill.IsActive != active {
		change := s.recorder.Observe(models.EntityRecurringBill, bill)
		bill.IsActive = active
		if err := bills.Update(ctx, bill); err != nil {
			return nil, err
		}
		change.Commit(ctx, actor, bill)
	}

	if active {
		payment, created, err := s.createPending(ctx, s.db, actor, bill)
		if err != nil {
			return nil, err
		}
		if created {
			s.recorder.Observe(models.EntityBillPayment, nil).Commit(ctx, actor, payment)
		}
	}
	return bill, nil
}

// GeneratePayment creates the next pending payment for a bill. When a
// pending payment already exists this is a no-op returning the existing
// payment with created=false.
func (s *Service) GeneratePayment(ctx context.Context, actor audit.ActorContext, billID int64) (*models.BillPayment, bool, error) {
	if err := requireEditor(actor); err != nil {
		return nil, false, err
	}

	bill, err := repository.NewRecurringBillRepository(s.db).GetByID(ctx, billID)
	if err != nil {
		return nil, false, err
	}
	if bill.IsSoftDeleted {
		return nil, false, fmt.Errorf("%w: bill %d is deleted", ErrValidation, billID)
	}

	payment, created, err := s.createPending(ctx, s.db, actor, bill)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.recorder.Observe(models.EntityBillPayment, nil).Commit(ctx, actor, payment)
	}
	return payment, created, nil
}

// createPending generates the next period's pending payment on the given
// database handle. The handle is a transaction during settlement so the
// roll-forward commits atomically with the payment update. When the bill
// already has a pending payment it is returned unchanged; a concurrent
// generate losing the race on the partial unique index degrades to the same
// no-op outside a transaction.
func (s *Service) createPending(ctx context.Context, db database.PGXDB, actor audit.ActorContext, bill *models.RecurringBill) (*models.BillPayment, bool, error) {
	payments := repository.NewBillPaymentRepository(db)

	pending, err := payments.GetPendingByBill(ctx, bill.ID)
	if err != nil {
		return nil, false, err
	}
	if pending != nil {
		s.log.Warn().Int64("bill_id", bill.ID).Int64("payment_id", pending.ID).
			Msg("bill already has a pending payment")
		return pending, false, nil
	}

	anchor := bill.StartDate
	latest, err := payments.GetLatestByBill(ctx, bill.ID)
	if err != nil {
		return nil, false, err
	}
	if latest != nil {
		anchor = latest.PeriodEnd
	}

	period, err := NextPeriod(bill.Frequency, bill.BillingDay, anchor)
	if err != nil {
		return nil, false, err
	}

	payment := &models.BillPayment{
		BillID:      bill.ID,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		DueDate:     period.Due,
		Amount:      bill.BaseAmount,
		Status:      models.PaymentStatusPending,
		CreatedBy:   actorUserID(actor, bill.CreatedBy),
	}
	if err := payments.Create(ctx, payment); err != nil {
		if repository.IsUniqueViolation(err) {
			if existing, gerr := payments.GetPendingByBill(ctx, bill.ID); gerr == nil && existing != nil {
				s.log.Warn().Int64("bill_id", bill.ID).
					Msg("concurrent payment generation, reusing existing pending payment")
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return payment, true, nil
}

// SettleInput holds the fields recorded when a pending payment is paid.
type SettleInput struct {
	Amount         decimal.Decimal
	PaidDate       time.Time
	FundingType    string
	Notes          string
	LinkedIncomeID *int64
}

func (in *SettleInput) validate() error {
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if in.PaidDate.IsZero() {
		return fmt.Errorf("%w: paid date is required", ErrValidation)
	}
	if in.FundingType != models.FundingInternal && in.FundingType != models.FundingExternal {
		return fmt.Errorf("%w: unknown funding type %q", ErrValidation, in.FundingType)
	}
	return nil
}

// Settle marks a pending payment paid. Internally funded settlements create
// a pending-approval expense linked one-to-one with the payment; externally
// funded ones do not. Either way the bill rolls forward to its next pending
// period inside the same transaction: a failure anywhere leaves the payment
// pending with no expense and no new period.
func (s *Service) Settle(ctx context.Context, actor audit.ActorContext, paymentID int64, input SettleInput) (*models.BillPayment, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	payments := repository.NewBillPaymentRepository(tx)
	expenses := repository.NewExpenseRepository(tx)
	bills := repository.NewRecurringBillRepository(tx)

	payment, err := payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, fmt.Errorf("%w: payment %d has status %q", ErrNotPending, paymentID, payment.Status)
	}

	bill, err := bills.GetByID(ctx, payment.BillID)
	if err != nil {
		return nil, err
	}

	before := *payment
	change := s.recorder.Observe(models.EntityBillPayment, &before)

	paidDate := truncateToDate(input.PaidDate)
	payment.Amount = input.Amount
	payment.PaidDate = &paidDate
	payment.FundingType = input.FundingType
	payment.Notes = input.Notes
	if input.LinkedIncomeID != nil {
		payment.LinkedIncomeID = input.LinkedIncomeID
	}

	var expense *models.Expense
	if input.FundingType == models.FundingInternal {
		expense = &models.Expense{
			CategoryID:     bill.CategoryID,
			VendorID:       bill.VendorID,
			LinkedIncomeID: input.LinkedIncomeID,
			Amount:         input.Amount,
			Date:           paidDate,
			Description: fmt.Sprintf("%s - %s to %s", bill.Name,
				payment.PeriodStart.Format(models.DateFormat),
				payment.PeriodEnd.Format(models.DateFormat)),
			Purpose:   "Recurring bill payment: " + bill.Name,
			Status:    models.ExpenseStatusPending,
			CreatedBy: actorUserID(actor, bill.CreatedBy),
		}
		if err := expenses.Create(ctx, expense); err != nil {
			return nil, fmt.Errorf("settlement aborted: %w", err)
		}
		payment.ExpenseID = &expense.ID
	}

	payment.Status = models.PaymentStatusPaid
	if err := payments.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("settlement aborted: %w", err)
	}

	next, nextCreated, err := s.createPending(ctx, tx, actor, bill)
	if err != nil {
		return nil, fmt.Errorf("settlement aborted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	// Audit only after the transaction committed; a crash in between loses
	// the trail entries but never the business writes.
	if expense != nil {
		s.recorder.Observe(models.EntityExpense, nil).Commit(ctx, actor, expense)
	}
	change.Commit(ctx, actor, payment)
	if nextCreated {
		s.recorder.Observe(models.EntityBillPayment, nil).Commit(ctx, actor, next)
	}

	return payment, nil
}

// NextDueDate projects the bill's next due date from its last paid period,
// or its start date when nothing has been paid yet.
func (s *Service) NextDueDate(ctx context.Context, bill *models.RecurringBill) (time.Time, error) {
	lastPaid, err := repository.NewBillPaymentRepository(s.db).GetLastPaidByBill(ctx, bill.ID)
	if err != nil {
		return time.Time{}, err
	}
	anchor := bill.StartDate
	if lastPaid != nil {
		anchor = lastPaid.PeriodEnd
	}
	return NextDueDateEstimate(bill.Frequency, bill.BillingDay, anchor)
}

// IsBillOverdue reports whether the bill's pending payment is overdue, or,
// with no pending payment, whether its projected next due date has passed.
func (s *Service) IsBillOverdue(ctx context.Context, bill *models.RecurringBill, today time.Time) (bool, error) {
	pending, err := repository.NewBillPaymentRepository(s.db).GetPendingByBill(ctx, bill.ID)
	if err != nil {
		return false, err
	}
	if pending != nil {
		return pending.IsOverdue(today), nil
	}
	next, err := s.NextDueDate(ctx, bill)
	if err != nil {
		return false, err
	}
	return next.Before(truncateToDate(today)), nil
}

// MonthStatus is one cell of the bills dashboard month grid.
type MonthStatus struct {
	Year    int
	Month   time.Month
	Paid    bool
	Pending bool
	Overdue bool
	Amount  *decimal.Decimal
}

// RecentPeriods returns payment status for the last n billing months of a
// bill, oldest first, keyed by the month each period starts in.
func (s *Service) RecentPeriods(ctx context.Context, billID int64, n int, today time.Time) ([]MonthStatus, error) {
	payments := repository.NewBillPaymentRepository(s.db)

	statuses := make([]MonthStatus, 0, n)
	for i := n - 1; i >= 0; i-- {
		month := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		ms := MonthStatus{Year: month.Year(), Month: month.Month()}

		payment, err := payments.GetByPeriodMonth(ctx, billID, month.Year(), month.Month())
		if err != nil {
			return nil, err
		}
		if payment != nil {
			switch payment.Status {
			case models.PaymentStatusPaid:
				ms.Paid = true
				amount := payment.Amount
				ms.Amount = &amount
			case models.PaymentStatusPending:
				ms.Pending = true
				ms.Overdue = payment.IsOverdue(today)
			}
		}
		statuses = append(statuses, ms)
	}
	return statuses, nil
}

// actorUserID resolves the user id to stamp on created rows, falling back
// when the actor is the system context.
func actorUserID(actor audit.ActorContext, fallback int64) int64 {
	if actor.UserID != nil {
		return *actor.UserID
	}
	return fallback
}
