package repository

import (
	"context"
	"fmt"

	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/models"
)

// IncomeSourceRepository handles income source database operations.
type IncomeSourceRepository struct {
	db database.PGXDB
}

// NewIncomeSourceRepository creates a new IncomeSourceRepository.
func NewIncomeSourceRepository(db database.PGXDB) *IncomeSourceRepository {
	return &IncomeSourceRepository{db: db}
}

// Create adds a new income source.
func (r *IncomeSourceRepository) Create(ctx context.Context, source *models.IncomeSource) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO income_sources (name, description, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, source.Name, source.Description, source.IsActive,
	).Scan(&source.ID, &source.CreatedAt, &source.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create income source: %w", err)
	}
	return nil
}

// GetByID retrieves an income source by ID.
func (r *IncomeSourceRepository) GetByID(ctx context.Context, id int64) (*models.IncomeSource, error) {
	var s models.IncomeSource
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, is_active, is_soft_deleted, created_at, updated_at
		FROM income_sources WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Description, &s.IsActive, &s.IsSoftDeleted,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get income source: %w", err)
	}
	return &s, nil
}

// ListActive retrieves all active, not soft-deleted income sources.
func (r *IncomeSourceRepository) ListActive(ctx context.Context) ([]models.IncomeSource, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, is_active, is_soft_deleted, created_at, updated_at
		FROM income_sources
		WHERE is_active = TRUE AND is_soft_deleted = FALSE
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query income sources: %w", err)
	}
	defer rows.Close()

	var sources []models.IncomeSource
	for rows.Next() {
		var s models.IncomeSource
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.IsActive, &s.IsSoftDeleted,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan income source: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating income sources: %w", err)
	}
	return sources, nil
}

// Update modifies an existing income source.
func (r *IncomeSourceRepository) Update(ctx context.Context, source *models.IncomeSource) error {
	_, err := r.db.Exec(ctx, `
		UPDATE income_sources SET
			name = $2,
			description = $3,
			is_active = $4,
			is_soft_deleted = $5,
			updated_at = NOW()
		WHERE id = $1
	`, source.ID, source.Name, source.Description, source.IsActive, source.IsSoftDeleted)
	if err != nil {
		return fmt.Errorf("failed to update income source: %w", err)
	}
	return nil
}
