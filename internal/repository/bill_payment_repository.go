package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/models"
)

// BillPaymentRepository handles bill payment database operations.
type BillPaymentRepository struct {
	db database.PGXDB
}

// NewBillPaymentRepository creates a new BillPaymentRepository.
func NewBillPaymentRepository(db database.PGXDB) *BillPaymentRepository {
	return &BillPaymentRepository{db: db}
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation. The billing engine uses this to detect a concurrent generate
// losing the race on the one-pending-per-bill index.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create adds a new bill payment.
func (r *BillPaymentRepository) Create(ctx context.Context, payment *models.BillPayment) error {
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	if payment.FundingType == "" {
		payment.FundingType = models.FundingInternal
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO bill_payments (bill_id, period_start, period_end, due_date, amount,
			status, funding_type, linked_income_id, paid_date, expense_id, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, payment.BillID, payment.PeriodStart, payment.PeriodEnd, payment.DueDate,
		payment.Amount, payment.Status, payment.FundingType, payment.LinkedIncomeID,
		payment.PaidDate, payment.ExpenseID, payment.Notes, payment.CreatedBy,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bill payment: %w", err)
	}
	return nil
}

const billPaymentColumns = `id, bill_id, period_start, period_end, due_date, amount,
	status, funding_type, linked_income_id, paid_date, expense_id, notes, created_by,
	created_at, updated_at`

func (r *BillPaymentRepository) scanOne(row pgx.Row) (*models.BillPayment, error) {
	var p models.BillPayment
	err := row.Scan(&p.ID, &p.BillID, &p.PeriodStart, &p.PeriodEnd, &p.DueDate, &p.Amount,
		&p.Status, &p.FundingType, &p.LinkedIncomeID, &p.PaidDate, &p.ExpenseID, &p.Notes,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a bill payment by ID.
func (r *BillPaymentRepository) GetByID(ctx context.Context, id int64) (*models.BillPayment, error) {
	p, err := r.scanOne(r.db.QueryRow(ctx,
		`SELECT `+billPaymentColumns+` FROM bill_payments WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get bill payment: %w", err)
	}
	return p, nil
}

// GetPendingByBill retrieves the pending payment for a bill, or nil if the
// bill has none. The partial unique index guarantees at most one exists.
func (r *BillPaymentRepository) GetPendingByBill(ctx context.Context, billID int64) (*models.BillPayment, error) {
	p, err := r.scanOne(r.db.QueryRow(ctx,
		`SELECT `+billPaymentColumns+` FROM bill_payments WHERE bill_id = $1 AND status = 'pending'`,
		billID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending payment: %w", err)
	}
	return p, nil
}

// GetLatestByBill retrieves the payment with the most recent period end for
// a bill regardless of status, or nil if the bill has no payments. The
// period generator anchors the next period here.
func (r *BillPaymentRepository) GetLatestByBill(ctx context.Context, billID int64) (*models.BillPayment, error) {
	p, err := r.scanOne(r.db.QueryRow(ctx,
		`SELECT `+billPaymentColumns+` FROM bill_payments WHERE bill_id = $1
		 ORDER BY period_end DESC LIMIT 1`, billID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest payment: %w", err)
	}
	return p, nil
}

// GetLastPaidByBill retrieves the most recently ended paid payment for a
// bill, or nil if none has been paid yet.
func (r *BillPaymentRepository) GetLastPaidByBill(ctx context.Context, billID int64) (*models.BillPayment, error) {
	p, err := r.scanOne(r.db.QueryRow(ctx,
		`SELECT `+billPaymentColumns+` FROM bill_payments WHERE bill_id = $1 AND status = 'paid'
		 ORDER BY period_end DESC LIMIT 1`, billID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last paid payment: %w", err)
	}
	return p, nil
}

// ListByBill retrieves all payments for a bill, most recent due date first.
func (r *BillPaymentRepository) ListByBill(ctx context.Context, billID int64) ([]models.BillPayment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+billPaymentColumns+` FROM bill_payments WHERE bill_id = $1
		 ORDER BY due_date DESC`, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bill payments: %w", err)
	}
	defer rows.Close()

	var payments []models.BillPayment
	for rows.Next() {
		var p models.BillPayment
		if err := rows.Scan(&p.ID, &p.BillID, &p.PeriodStart, &p.PeriodEnd, &p.DueDate,
			&p.Amount, &p.Status, &p.FundingType, &p.LinkedIncomeID, &p.PaidDate,
			&p.ExpenseID, &p.Notes, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bill payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bill payments: %w", err)
	}
	return payments, nil
}

// GetByPeriodMonth retrieves the payment whose period starts in the given
// month, or nil if none exists. Used by the bills dashboard month grid.
func (r *BillPaymentRepository) GetByPeriodMonth(ctx context.Context, billID int64, year int, month time.Month) (*models.BillPayment, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)
	p, err := r.scanOne(r.db.QueryRow(ctx,
		`SELECT `+billPaymentColumns+` FROM bill_payments
		 WHERE bill_id = $1 AND period_start >= $2 AND period_start < $3
		 LIMIT 1`, billID, monthStart, nextMonth))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by period month: %w", err)
	}
	return p, nil
}

// Update modifies an existing bill payment.
func (r *BillPaymentRepository) Update(ctx context.Context, payment *models.BillPayment) error {
	_, err := r.db.Exec(ctx, `
		UPDATE bill_payments SET
			amount = $2,
			status = $3,
			funding_type = $4,
			linked_income_id = $5,
			paid_date = $6,
			expense_id = $7,
			notes = $8,
			updated_at = NOW()
		WHERE id = $1
	`, payment.ID, payment.Amount, payment.Status, payment.FundingType,
		payment.LinkedIncomeID, payment.PaidDate, payment.ExpenseID, payment.Notes)
	if err != nil {
		return fmt.Errorf("failed to update bill payment: %w", err)
	}
	return nil
}

// PendingTotal sums the amounts of all pending payments on bills that are
// not soft-deleted.
func (r *BillPaymentRepository) PendingTotal(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM bill_payments p
		JOIN recurring_bills b ON p.bill_id = b.id
		WHERE p.status = 'pending' AND b.is_soft_deleted = FALSE
	`).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get pending total: %w", err)
	}
	return total, nil
}

// PaidTotalForMonth sums payments paid within the given calendar month.
func (r *BillPaymentRepository) PaidTotalForMonth(ctx context.Context, year int, month time.Month) (decimal.Decimal, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM bill_payments p
		JOIN recurring_bills b ON p.bill_id = b.id
		WHERE p.status = 'paid' AND b.is_soft_deleted = FALSE
		  AND p.paid_date >= $1 AND p.paid_date < $2
	`, monthStart, nextMonth).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get paid total: %w", err)
	}
	return total, nil
}
