package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/models"
)

// ExpenseRepository handles expense database operations.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create adds a new expense. New expenses enter the approval workflow in
// pending status unless a status is set explicitly.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.Status == "" {
		expense.Status = models.ExpenseStatusPending
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (category_id, vendor_id, linked_income_id, amount, date,
			description, purpose, invoice_number, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, expense.CategoryID, expense.VendorID, expense.LinkedIncomeID, expense.Amount,
		expense.Date, expense.Description, expense.Purpose, expense.InvoiceNumber,
		expense.Status, expense.CreatedBy,
	).Scan(&expense.ID, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID retrieves an expense by ID.
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*models.Expense, error) {
	var exp models.Expense
	err := r.db.QueryRow(ctx, `
		SELECT id, category_id, vendor_id, linked_income_id, amount, date, description,
		       purpose, invoice_number, status, approved_by, approved_at, rejection_reason,
		       created_by, is_soft_deleted, created_at, updated_at
		FROM expenses WHERE id = $1
	`, id).Scan(&exp.ID, &exp.CategoryID, &exp.VendorID, &exp.LinkedIncomeID, &exp.Amount,
		&exp.Date, &exp.Description, &exp.Purpose, &exp.InvoiceNumber, &exp.Status,
		&exp.ApprovedBy, &exp.ApprovedAt, &exp.RejectionReason, &exp.CreatedBy,
		&exp.IsSoftDeleted, &exp.CreatedAt, &exp.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return &exp, nil
}

// ListByStatus retrieves not soft-deleted expenses with the given status,
// newest first, joined with their category.
func (r *ExpenseRepository) ListByStatus(ctx context.Context, status string, limit int) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.id, e.category_id, e.vendor_id, e.linked_income_id, e.amount, e.date,
		       e.description, e.purpose, e.invoice_number, e.status, e.approved_by,
		       e.approved_at, e.rejection_reason, e.created_by, e.is_soft_deleted,
		       e.created_at, e.updated_at,
		       c.id, c.name
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.status = $1 AND e.is_soft_deleted = FALSE
		ORDER BY e.date DESC, e.id DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses by status: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

// ListByDateRange retrieves not soft-deleted expenses within [startDate, endDate).
func (r *ExpenseRepository) ListByDateRange(ctx context.Context, startDate, endDate time.Time) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.id, e.category_id, e.vendor_id, e.linked_income_id, e.amount, e.date,
		       e.description, e.purpose, e.invoice_number, e.status, e.approved_by,
		       e.approved_at, e.rejection_reason, e.created_by, e.is_soft_deleted,
		       e.created_at, e.updated_at,
		       c.id, c.name
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.date >= $1 AND e.date < $2 AND e.is_soft_deleted = FALSE
		ORDER BY e.date DESC, e.id DESC
	`, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses by date range: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

// Update modifies an existing expense.
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	_, err := r.db.Exec(ctx, `
		UPDATE expenses SET
			category_id = $2,
			vendor_id = $3,
			linked_income_id = $4,
			amount = $5,
			date = $6,
			description = $7,
			purpose = $8,
			invoice_number = $9,
			status = $10,
			approved_by = $11,
			approved_at = $12,
			rejection_reason = $13,
			is_soft_deleted = $14,
			updated_at = NOW()
		WHERE id = $1
	`, expense.ID, expense.CategoryID, expense.VendorID, expense.LinkedIncomeID,
		expense.Amount, expense.Date, expense.Description, expense.Purpose,
		expense.InvoiceNumber, expense.Status, expense.ApprovedBy, expense.ApprovedAt,
		expense.RejectionReason, expense.IsSoftDeleted)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return nil
}

// Delete permanently removes an expense.
func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// TotalByDateRange calculates total expenses within [startDate, endDate).
// Soft-deleted rows are excluded.
func (r *ExpenseRepository) TotalByDateRange(ctx context.Context, startDate, endDate time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM expenses
		WHERE date >= $1 AND date < $2 AND is_soft_deleted = FALSE
	`, startDate, endDate).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get expense total: %w", err)
	}
	return total, nil
}

// CategoryTotal is one row of the per-category expense breakdown.
type CategoryTotal struct {
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
	Count        int64           `json:"count"`
}

// CategoryBreakdown aggregates expenses per category within [startDate, endDate).
func (r *ExpenseRepository) CategoryBreakdown(ctx context.Context, startDate, endDate time.Time) ([]CategoryTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.name, COALESCE(SUM(e.amount), 0), COUNT(e.id)
		FROM expenses e
		JOIN categories c ON e.category_id = c.id
		WHERE e.date >= $1 AND e.date < $2 AND e.is_soft_deleted = FALSE
		GROUP BY c.name
		ORDER BY SUM(e.amount) DESC
	`, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query category breakdown: %w", err)
	}
	defer rows.Close()

	var breakdown []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.CategoryName, &ct.Total, &ct.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		breakdown = append(breakdown, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category breakdown: %w", err)
	}
	return breakdown, nil
}

// scanExpenses is a helper to scan expense rows with category joins.
func scanExpenses(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
},
) ([]models.Expense, error) {
	var expenses []models.Expense
	for rows.Next() {
		var exp models.Expense
		var catID *int64
		var catName *string

		if err := rows.Scan(
			&exp.ID, &exp.CategoryID, &exp.VendorID, &exp.LinkedIncomeID, &exp.Amount,
			&exp.Date, &exp.Description, &exp.Purpose, &exp.InvoiceNumber, &exp.Status,
			&exp.ApprovedBy, &exp.ApprovedAt, &exp.RejectionReason, &exp.CreatedBy,
			&exp.IsSoftDeleted, &exp.CreatedAt, &exp.UpdatedAt,
			&catID, &catName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}

		if catID != nil {
			exp.Category = &models.Category{ID: *catID, Name: *catName}
		}
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}
