package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/itfintrack/fintrack/internal/models"
	"gitlab.com/itfintrack/fintrack/internal/repository"
)

func TestCreateCategory(t *testing.T) {
	f := setupLedgerTest(t)

	t.Run("creates and audits", func(t *testing.T) {
		category, err := f.svc.CreateCategory(f.ctx, f.manager, "  Conference Travel ")
		require.NoError(t, err)
		require.Equal(t, "Conference Travel", category.Name)

		entries, err := repository.NewAuditLogRepository(f.db).ListByEntity(f.ctx, models.EntityCategory, category.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, models.ActionCreate, entries[0].Action)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := f.svc.CreateCategory(f.ctx, f.admin, "   ")
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("viewer cannot create", func(t *testing.T) {
		_, err := f.svc.CreateCategory(f.ctx, f.viewer, "Shadow IT")
		require.ErrorIs(t, err, ErrPermission)
	})
}

func TestSetCategoryDeleted(t *testing.T) {
	f := setupLedgerTest(t)

	category, err := f.svc.CreateCategory(f.ctx, f.admin, "Obsolete")
	require.NoError(t, err)

	_, err = f.svc.SetCategoryDeleted(f.ctx, f.manager, category.ID, true)
	require.ErrorIs(t, err, ErrPermission)

	deleted, err := f.svc.SetCategoryDeleted(f.ctx, f.admin, category.ID, true)
	require.NoError(t, err)
	require.True(t, deleted.IsSoftDeleted)

	entries, err := repository.NewAuditLogRepository(f.db).ListByEntity(f.ctx, models.EntityCategory, category.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, models.ActionSoftDelete, entries[0].Action)
}

func TestVendorLifecycle(t *testing.T) {
	f := setupLedgerTest(t)

	vendor, err := f.svc.CreateVendor(f.ctx, f.manager, VendorInput{
		Name:     "Hetzner Online",
		Contact:  "billing@example.com",
		IsActive: true,
	})
	require.NoError(t, err)
	require.NotZero(t, vendor.ID)

	updated, err := f.svc.UpdateVendor(f.ctx, f.admin, vendor.ID, VendorInput{
		Name:     "Hetzner Online GmbH",
		Contact:  "billing@example.com",
		IsActive: true,
	})
	require.NoError(t, err)
	require.Equal(t, "Hetzner Online GmbH", updated.Name)

	entries, err := repository.NewAuditLogRepository(f.db).ListByEntity(f.ctx, models.EntityVendor, vendor.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, models.ActionUpdate, entries[0].Action)
	require.Contains(t, entries[0].ChangesSummary, "name")

	active, err := repository.NewVendorRepository(f.db).ListActive(f.ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	_, err = f.svc.CreateVendor(f.ctx, f.viewer, VendorInput{Name: "Nope", IsActive: true})
	require.ErrorIs(t, err, ErrPermission)
}

func TestIncomeSourceLifecycle(t *testing.T) {
	f := setupLedgerTest(t)

	source, err := f.svc.CreateIncomeSource(f.ctx, f.admin, IncomeSourceInput{
		Name:        "Central IT Budget",
		Description: "annual allocation",
		IsActive:    true,
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateIncomeSource(f.ctx, f.manager, source.ID, IncomeSourceInput{
		Name:        "Central IT Budget",
		Description: "annual allocation, reviewed quarterly",
		IsActive:    true,
	})
	require.NoError(t, err)
	require.Equal(t, "annual allocation, reviewed quarterly", updated.Description)

	entries, err := repository.NewAuditLogRepository(f.db).ListByEntity(f.ctx, models.EntityIncomeSource, source.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	_, err = f.svc.CreateIncomeSource(f.ctx, f.admin, IncomeSourceInput{Name: ""})
	require.ErrorIs(t, err, ErrValidation)
}
