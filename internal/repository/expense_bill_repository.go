package repository

import (
	"context"
	"fmt"

	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/models"
)

// ExpenseBillRepository handles expense bill attachment metadata.
type ExpenseBillRepository struct {
	db database.PGXDB
}

// NewExpenseBillRepository creates a new ExpenseBillRepository.
func NewExpenseBillRepository(db database.PGXDB) *ExpenseBillRepository {
	return &ExpenseBillRepository{db: db}
}

// Create records a bill attachment for an expense.
func (r *ExpenseBillRepository) Create(ctx context.Context, bill *models.ExpenseBill) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO expense_bills (expense_id, stored_filename, original_filename, description, uploaded_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uploaded_at
	`, bill.ExpenseID, bill.StoredFilename, bill.OriginalFilename, bill.Description, bill.UploadedBy,
	).Scan(&bill.ID, &bill.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense bill: %w", err)
	}
	return nil
}

// GetByID retrieves an expense bill by ID.
func (r *ExpenseBillRepository) GetByID(ctx context.Context, id int64) (*models.ExpenseBill, error) {
	var b models.ExpenseBill
	err := r.db.QueryRow(ctx, `
		SELECT id, expense_id, stored_filename, original_filename, description, uploaded_by, uploaded_at
		FROM expense_bills WHERE id = $1
	`, id).Scan(&b.ID, &b.ExpenseID, &b.StoredFilename, &b.OriginalFilename,
		&b.Description, &b.UploadedBy, &b.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense bill: %w", err)
	}
	return &b, nil
}

// ListByExpense retrieves all bill attachments for an expense.
func (r *ExpenseBillRepository) ListByExpense(ctx context.Context, expenseID int64) ([]models.ExpenseBill, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, expense_id, stored_filename, original_filename, description, uploaded_by, uploaded_at
		FROM expense_bills
		WHERE expense_id = $1
		ORDER BY uploaded_at DESC
	`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expense bills: %w", err)
	}
	defer rows.Close()

	var bills []models.ExpenseBill
	for rows.Next() {
		var b models.ExpenseBill
		if err := rows.Scan(&b.ID, &b.ExpenseID, &b.StoredFilename, &b.OriginalFilename,
			&b.Description, &b.UploadedBy, &b.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense bill: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense bills: %w", err)
	}
	return bills, nil
}

// Delete removes a bill attachment record.
func (r *ExpenseBillRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM expense_bills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense bill: %w", err)
	}
	return nil
}
