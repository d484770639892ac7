package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/models"
)

func setupExpenseTest(t *testing.T) (*ExpenseRepository, *models.Category, *models.User, context.Context) {
	t.Helper()

	tx := database.TestTx(t)
	ctx := context.Background()

	user := &models.User{Username: "expense_tester", Role: models.RoleManager, IsActive: true}
	require.NoError(t, NewUserRepository(tx).Create(ctx, user))

	category, err := NewCategoryRepository(tx).GetByName(ctx, "Hardware")
	require.NoError(t, err)

	return NewExpenseRepository(tx), category, user, ctx
}

func testExpense(category *models.Category, user *models.User, amount string, d time.Time) *models.Expense {
	return &models.Expense{
		CategoryID:  category.ID,
		Amount:      decimal.RequireFromString(amount),
		Date:        d,
		Description: "test expense",
		CreatedBy:   user.ID,
	}
}

func TestExpenseCreateDefaultsToPending(t *testing.T) {
	repo, category, user, ctx := setupExpenseTest(t)

	expense := testExpense(category, user, "45.00", day(2024, time.April, 2))
	require.NoError(t, repo.Create(ctx, expense))
	require.NotZero(t, expense.ID)
	require.Equal(t, models.ExpenseStatusPending, expense.Status)
	require.False(t, expense.CreatedAt.IsZero())
}

func TestExpenseListByStatus(t *testing.T) {
	repo, category, user, ctx := setupExpenseTest(t)

	pending := testExpense(category, user, "10.00", day(2024, time.April, 2))
	require.NoError(t, repo.Create(ctx, pending))

	approved := testExpense(category, user, "20.00", day(2024, time.April, 3))
	require.NoError(t, repo.Create(ctx, approved))
	approved.Status = models.ExpenseStatusApproved
	require.NoError(t, repo.Update(ctx, approved))

	got, err := repo.ListByStatus(ctx, models.ExpenseStatusPending, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, pending.ID, got[0].ID)

	got, err = repo.ListByStatus(ctx, models.ExpenseStatusApproved, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, approved.ID, got[0].ID)
}

func TestExpenseTotalsExcludeSoftDeleted(t *testing.T) {
	repo, category, user, ctx := setupExpenseTest(t)

	kept := testExpense(category, user, "100.00", day(2024, time.April, 10))
	require.NoError(t, repo.Create(ctx, kept))

	removed := testExpense(category, user, "40.00", day(2024, time.April, 11))
	require.NoError(t, repo.Create(ctx, removed))
	removed.IsSoftDeleted = true
	require.NoError(t, repo.Update(ctx, removed))

	outside := testExpense(category, user, "999.00", day(2024, time.June, 1))
	require.NoError(t, repo.Create(ctx, outside))

	total, err := repo.TotalByDateRange(ctx, day(2024, time.April, 1), day(2024, time.May, 1))
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.RequireFromString("100.00")),
		"got total %s", total)
}

func TestExpenseCategoryBreakdown(t *testing.T) {
	repo, category, user, ctx := setupExpenseTest(t)

	other, err := NewCategoryRepository(repo.db).GetByName(ctx, "Training")
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, testExpense(category, user, "60.00", day(2024, time.April, 5))))
	require.NoError(t, repo.Create(ctx, testExpense(category, user, "40.00", day(2024, time.April, 6))))
	require.NoError(t, repo.Create(ctx, testExpense(other, user, "25.00", day(2024, time.April, 7))))

	breakdown, err := repo.CategoryBreakdown(ctx, day(2024, time.April, 1), day(2024, time.May, 1))
	require.NoError(t, err)
	require.Len(t, breakdown, 2)

	// Largest total first.
	require.Equal(t, "Hardware", breakdown[0].CategoryName)
	require.True(t, breakdown[0].Total.Equal(decimal.RequireFromString("100.00")))
	require.Equal(t, int64(2), breakdown[0].Count)
	require.Equal(t, "Training", breakdown[1].CategoryName)
}

func TestExpenseDateRangeIsHalfOpen(t *testing.T) {
	repo, category, user, ctx := setupExpenseTest(t)

	require.NoError(t, repo.Create(ctx, testExpense(category, user, "10.00", day(2024, time.April, 30))))
	require.NoError(t, repo.Create(ctx, testExpense(category, user, "20.00", day(2024, time.May, 1))))

	got, err := repo.ListByDateRange(ctx, day(2024, time.April, 1), day(2024, time.May, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Amount.Equal(decimal.RequireFromString("10.00")))
}
