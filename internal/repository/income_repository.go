package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/models"
)

// IncomeRepository handles income database operations.
type IncomeRepository struct {
	db database.PGXDB
}

// NewIncomeRepository creates a new IncomeRepository.
func NewIncomeRepository(db database.PGXDB) *IncomeRepository {
	return &IncomeRepository{db: db}
}

// Create adds a new income record.
func (r *IncomeRepository) Create(ctx context.Context, income *models.Income) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO incomes (source_id, amount, date, description, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, income.SourceID, income.Amount, income.Date, income.Description, income.CreatedBy,
	).Scan(&income.ID, &income.CreatedAt, &income.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create income: %w", err)
	}
	return nil
}

// GetByID retrieves an income record by ID.
func (r *IncomeRepository) GetByID(ctx context.Context, id int64) (*models.Income, error) {
	var inc models.Income
	err := r.db.QueryRow(ctx, `
		SELECT id, source_id, amount, date, description, created_by, is_soft_deleted, created_at, updated_at
		FROM incomes WHERE id = $1
	`, id).Scan(&inc.ID, &inc.SourceID, &inc.Amount, &inc.Date, &inc.Description,
		&inc.CreatedBy, &inc.IsSoftDeleted, &inc.CreatedAt, &inc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get income: %w", err)
	}
	return &inc, nil
}

// List retrieves income records that are not soft-deleted, newest first.
func (r *IncomeRepository) List(ctx context.Context, limit int) ([]models.Income, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.source_id, i.amount, i.date, i.description, i.created_by,
		       i.is_soft_deleted, i.created_at, i.updated_at,
		       s.id, s.name
		FROM incomes i
		LEFT JOIN income_sources s ON i.source_id = s.id
		WHERE i.is_soft_deleted = FALSE
		ORDER BY i.date DESC, i.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query incomes: %w", err)
	}
	defer rows.Close()

	var incomes []models.Income
	for rows.Next() {
		var inc models.Income
		var srcID *int64
		var srcName *string
		if err := rows.Scan(&inc.ID, &inc.SourceID, &inc.Amount, &inc.Date, &inc.Description,
			&inc.CreatedBy, &inc.IsSoftDeleted, &inc.CreatedAt, &inc.UpdatedAt,
			&srcID, &srcName); err != nil {
			return nil, fmt.Errorf("failed to scan income: %w", err)
		}
		if srcID != nil {
			inc.Source = &models.IncomeSource{ID: *srcID, Name: *srcName}
		}
		incomes = append(incomes, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incomes: %w", err)
	}
	return incomes, nil
}

// Update modifies an existing income record.
func (r *IncomeRepository) Update(ctx context.Context, income *models.Income) error {
	_, err := r.db.Exec(ctx, `
		UPDATE incomes SET
			source_id = $2,
			amount = $3,
			date = $4,
			description = $5,
			is_soft_deleted = $6,
			updated_at = NOW()
		WHERE id = $1
	`, income.ID, income.SourceID, income.Amount, income.Date, income.Description, income.IsSoftDeleted)
	if err != nil {
		return fmt.Errorf("failed to update income: %w", err)
	}
	return nil
}

// Delete permanently removes an income record.
func (r *IncomeRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM incomes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete income: %w", err)
	}
	return nil
}

// TotalByDateRange calculates total income within [startDate, endDate).
func (r *IncomeRepository) TotalByDateRange(ctx context.Context, startDate, endDate time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM incomes
		WHERE date >= $1 AND date < $2 AND is_soft_deleted = FALSE
	`, startDate, endDate).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get income total: %w", err)
	}
	return total, nil
}
