package repository

import (
	"context"
	"fmt"

	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/models"
)

// RecurringBillRepository handles recurring bill database operations.
type RecurringBillRepository struct {
	db database.PGXDB
}

// NewRecurringBillRepository creates a new RecurringBillRepository.
func NewRecurringBillRepository(db database.PGXDB) *RecurringBillRepository {
	return &RecurringBillRepository{db: db}
}

// Create adds a new recurring bill.
func (r *RecurringBillRepository) Create(ctx context.Context, bill *models.RecurringBill) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO recurring_bills (name, category_id, vendor_id, base_amount, frequency,
			billing_day, start_date, description, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, bill.Name, bill.CategoryID, bill.VendorID, bill.BaseAmount, bill.Frequency,
		bill.BillingDay, bill.StartDate, bill.Description, bill.IsActive, bill.CreatedBy,
	).Scan(&bill.ID, &bill.CreatedAt, &bill.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create recurring bill: %w", err)
	}
	return nil
}

// GetByID retrieves a recurring bill by ID.
func (r *RecurringBillRepository) GetByID(ctx context.Context, id int64) (*models.RecurringBill, error) {
	var b models.RecurringBill
	err := r.db.QueryRow(ctx, `
		SELECT id, name, category_id, vendor_id, base_amount, frequency, billing_day,
		       start_date, description, is_active, created_by, is_soft_deleted,
		       created_at, updated_at
		FROM recurring_bills WHERE id = $1
	`, id).Scan(&b.ID, &b.Name, &b.CategoryID, &b.VendorID, &b.BaseAmount, &b.Frequency,
		&b.BillingDay, &b.StartDate, &b.Description, &b.IsActive, &b.CreatedBy,
		&b.IsSoftDeleted, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring bill: %w", err)
	}
	return &b, nil
}

// List retrieves recurring bills that are not soft-deleted, joined with
// their category and vendor, ordered by name.
func (r *RecurringBillRepository) List(ctx context.Context, activeOnly bool) ([]models.RecurringBill, error) {
	rows, err := r.db.Query(ctx, `
		SELECT b.id, b.name, b.category_id, b.vendor_id, b.base_amount, b.frequency,
		       b.billing_day, b.start_date, b.description, b.is_active, b.created_by,
		       b.is_soft_deleted, b.created_at, b.updated_at,
		       c.id, c.name,
		       v.id, v.name
		FROM recurring_bills b
		JOIN categories c ON b.category_id = c.id
		LEFT JOIN vendors v ON b.vendor_id = v.id
		WHERE b.is_soft_deleted = FALSE AND (b.is_active = TRUE OR $1 = FALSE)
		ORDER BY b.name
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring bills: %w", err)
	}
	defer rows.Close()

	var bills []models.RecurringBill
	for rows.Next() {
		var b models.RecurringBill
		var catID *int64
		var catName *string
		var venID *int64
		var venName *string
		if err := rows.Scan(&b.ID, &b.Name, &b.CategoryID, &b.VendorID, &b.BaseAmount,
			&b.Frequency, &b.BillingDay, &b.StartDate, &b.Description, &b.IsActive,
			&b.CreatedBy, &b.IsSoftDeleted, &b.CreatedAt, &b.UpdatedAt,
			&catID, &catName, &venID, &venName); err != nil {
			return nil, fmt.Errorf("failed to scan recurring bill: %w", err)
		}
		if catID != nil {
			b.Category = &models.Category{ID: *catID, Name: *catName}
		}
		if venID != nil {
			b.Vendor = &models.Vendor{ID: *venID, Name: *venName}
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring bills: %w", err)
	}
	return bills, nil
}

// Update modifies an existing recurring bill.
func (r *RecurringBillRepository) Update(ctx context.Context, bill *models.RecurringBill) error {
	_, err := r.db.Exec(ctx, `
		UPDATE recurring_bills SET
			name = $2,
			category_id = $3,
			vendor_id = $4,
			base_amount = $5,
			frequency = $6,
			billing_day = $7,
			start_date = $8,
			description = $9,
			is_active = $10,
			is_soft_deleted = $11,
			updated_at = NOW()
		WHERE id = $1
	`, bill.ID, bill.Name, bill.CategoryID, bill.VendorID, bill.BaseAmount, bill.Frequency,
		bill.BillingDay, bill.StartDate, bill.Description, bill.IsActive, bill.IsSoftDeleted)
	if err != nil {
		return fmt.Errorf("failed to update recurring bill: %w", err)
	}
	return nil
}
