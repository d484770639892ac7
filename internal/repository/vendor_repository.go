package repository

import (
	"context"
	"fmt"

	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/models"
)

// VendorRepository handles vendor database operations.
type VendorRepository struct {
	db database.PGXDB
}

// NewVendorRepository creates a new VendorRepository.
func NewVendorRepository(db database.PGXDB) *VendorRepository {
	return &VendorRepository{db: db}
}

// Create adds a new vendor.
func (r *VendorRepository) Create(ctx context.Context, vendor *models.Vendor) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO vendors (name, contact, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, vendor.Name, vendor.Contact, vendor.IsActive,
	).Scan(&vendor.ID, &vendor.CreatedAt, &vendor.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

// GetByID retrieves a vendor by ID.
func (r *VendorRepository) GetByID(ctx context.Context, id int64) (*models.Vendor, error) {
	var v models.Vendor
	err := r.db.QueryRow(ctx, `
		SELECT id, name, contact, is_active, is_soft_deleted, created_at, updated_at
		FROM vendors WHERE id = $1
	`, id).Scan(&v.ID, &v.Name, &v.Contact, &v.IsActive, &v.IsSoftDeleted, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return &v, nil
}

// ListActive retrieves all active, not soft-deleted vendors.
func (r *VendorRepository) ListActive(ctx context.Context) ([]models.Vendor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, contact, is_active, is_soft_deleted, created_at, updated_at
		FROM vendors
		WHERE is_active = TRUE AND is_soft_deleted = FALSE
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	var vendors []models.Vendor
	for rows.Next() {
		var v models.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Contact, &v.IsActive, &v.IsSoftDeleted,
			&v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vendors: %w", err)
	}
	return vendors, nil
}

// Update modifies an existing vendor.
func (r *VendorRepository) Update(ctx context.Context, vendor *models.Vendor) error {
	_, err := r.db.Exec(ctx, `
		UPDATE vendors SET
			name = $2,
			contact = $3,
			is_active = $4,
			is_soft_deleted = $5,
			updated_at = NOW()
		WHERE id = $1
	`, vendor.ID, vendor.Name, vendor.Contact, vendor.IsActive, vendor.IsSoftDeleted)
	if err != nil {
		return fmt.Errorf("failed to update vendor: %w", err)
	}
	return nil
}
