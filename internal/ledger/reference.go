package ledger

import (
	"context"
	"fmt"
	"strings"

	"gitlab.com/itfintrack/fintrack/internal/audit"
	"gitlab.com/itfintrack/fintrack/internal/models"
	"gitlab.com/itfintrack/fintrack/internal/repository"
)

// Reference-data operations: categories, vendors and income sources. These
// follow the same role gates and capture pattern as the ledger records they
// classify.

// CreateCategory adds an expense category.
func (s *Service) CreateCategory(ctx context.Context, actor audit.ActorContext, name string) (*models.Category, error) {
	if !roleCanEdit(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot manage categories", ErrPermission, actor.Role)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidation)
	}

	category, err := repository.NewCategoryRepository(s.db).Create(ctx, name)
	if err != nil {
		return nil, err
	}
	s.recorder.Observe(models.EntityCategory, nil).Commit(ctx, actor, category)
	return category, nil
}

// SetCategoryDeleted soft-deletes or restores a category.
func (s *Service) SetCategoryDeleted(ctx context.Context, actor audit.ActorContext, id int64, deleted bool) (*models.Category, error) {
	if !roleCanDelete(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot delete categories", ErrPermission, actor.Role)
	}

	categories := repository.NewCategoryRepository(s.db)
	category, err := categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	change := s.recorder.Observe(models.EntityCategory, category)
	category.IsSoftDeleted = deleted
	if err := categories.Update(ctx, category); err != nil {
		return nil, err
	}
	change.Commit(ctx, actor, category)
	return category, nil
}

// VendorInput holds the writable fields of a vendor.
type VendorInput struct {
	Name     string
	Contact  string
	IsActive bool
}

// CreateVendor adds a vendor.
func (s *Service) CreateVendor(ctx context.Context, actor audit.ActorContext, input VendorInput) (*models.Vendor, error) {
	if !roleCanEdit(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot manage vendors", ErrPermission, actor.Role)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: vendor name is required", ErrValidation)
	}

	vendor := &models.Vendor{
		Name:     strings.TrimSpace(input.Name),
		Contact:  input.Contact,
		IsActive: input.IsActive,
	}
	if err := repository.NewVendorRepository(s.db).Create(ctx, vendor); err != nil {
		return nil, err
	}
	s.recorder.Observe(models.EntityVendor, nil).Commit(ctx, actor, vendor)
	return vendor, nil
}

// UpdateVendor applies new field values to a vendor.
func (s *Service) UpdateVendor(ctx context.Context, actor audit.ActorContext, id int64, input VendorInput) (*models.Vendor, error) {
	if !roleCanEdit(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot manage vendors", ErrPermission, actor.Role)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: vendor name is required", ErrValidation)
	}

	vendors := repository.NewVendorRepository(s.db)
	vendor, err := vendors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	change := s.recorder.Observe(models.EntityVendor, vendor)
	vendor.Name = strings.TrimSpace(input.Name)
	vendor.Contact = input.Contact
	vendor.IsActive = input.IsActive
	if err := vendors.Update(ctx, vendor); err != nil {
		return nil, err
	}
	change.Commit(ctx, actor, vendor)
	return vendor, nil
}

// IncomeSourceInput holds the writable fields of an income source.
type IncomeSourceInput struct {
	Name        string
	Description string
	IsActive    bool
}

// CreateIncomeSource adds an income source.
func (s *Service) CreateIncomeSource(ctx context.Context, actor audit.ActorContext, input IncomeSourceInput) (*models.IncomeSource, error) {
	if !roleCanEdit(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot manage income sources", ErrPermission, actor.Role)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: income source name is required", ErrValidation)
	}

	source := &models.IncomeSource{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		IsActive:    input.IsActive,
	}
	if err := repository.NewIncomeSourceRepository(s.db).Create(ctx, source); err != nil {
		return nil, err
	}
	s.recorder.Observe(models.EntityIncomeSource, nil).Commit(ctx, actor, source)
	return source, nil
}

// UpdateIncomeSource applies new field values to an income source.
func (s *Service) UpdateIncomeSource(ctx context.Context, actor audit.ActorContext, id int64, input IncomeSourceInput) (*models.IncomeSource, error) {
	if !roleCanEdit(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot manage income sources", ErrPermission, actor.Role)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: income source name is required", ErrValidation)
	}

	sources := repository.NewIncomeSourceRepository(s.db)
	source, err := sources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	change := s.recorder.Observe(models.EntityIncomeSource, source)
	source.Name = strings.TrimSpace(input.Name)
	source.Description = input.Description
	source.IsActive = input.IsActive
	if err := sources.Update(ctx, source); err != nil {
		return nil, err
	}
	change.Commit(ctx, actor, source)
	return source, nil
}
