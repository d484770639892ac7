package reports

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/models"
	"gitlab.com/itfintrack/fintrack/internal/repository"
)

func TestBuildSummary(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	svc := NewService(tx)

	user := &models.User{Username: "reports_tester", Role: models.RoleManager, IsActive: true}
	require.NoError(t, repository.NewUserRepository(tx).Create(ctx, user))
	category, err := repository.NewCategoryRepository(tx).GetByName(ctx, "Hardware")
	require.NoError(t, err)

	require.NoError(t, repository.NewIncomeRepository(tx).Create(ctx, &models.Income{
		Amount:    decimal.RequireFromString("1500.00"),
		Date:      time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		CreatedBy: user.ID,
	}))

	expenses := repository.NewExpenseRepository(tx)
	require.NoError(t, expenses.Create(ctx, &models.Expense{
		CategoryID:  category.ID,
		Amount:      decimal.RequireFromString("400.00"),
		Date:        time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC),
		Description: "replacement switch",
		CreatedBy:   user.ID,
	}))
	// Outside the report range.
	require.NoError(t, expenses.Create(ctx, &models.Expense{
		CategoryID: category.ID,
		Amount:     decimal.RequireFromString("99.00"),
		Date:       time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC),
		CreatedBy:  user.ID,
	}))

	start, end := MonthRange(2024, time.March)
	summary, err := svc.BuildSummary(ctx, start, end)
	require.NoError(t, err)

	require.True(t, summary.TotalIncome.Equal(decimal.RequireFromString("1500.00")))
	require.True(t, summary.TotalExpenses.Equal(decimal.RequireFromString("400.00")))
	require.True(t, summary.Balance.Equal(decimal.RequireFromString("1100.00")))
	require.True(t, summary.BillsPaid.IsZero())
	require.Zero(t, summary.AuditEvents)
	require.Len(t, summary.Categories, 1)
	require.Equal(t, "Hardware", summary.Categories[0].CategoryName)
	require.EqualValues(t, 1, summary.Categories[0].Count)
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(2024, time.February)
	require.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = MonthRange(2024, time.December)
	require.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestCategoryChart(t *testing.T) {
	t.Run("renders a PNG", func(t *testing.T) {
		breakdown := []repository.CategoryTotal{
			{CategoryName: "Hosting & Cloud", Total: decimal.RequireFromString("320.00"), Count: 4},
			{CategoryName: "Software Licenses", Total: decimal.RequireFromString("180.00"), Count: 2},
			{CategoryName: "Hardware", Total: decimal.RequireFromString("75.50"), Count: 1},
		}

		png, err := CategoryChart(breakdown, "Expense Breakdown - March 2024")
		require.NoError(t, err)
		require.NotEmpty(t, png)
		require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "output is a PNG")
	})

	t.Run("errors with no data", func(t *testing.T) {
		_, err := CategoryChart(nil, "empty")
		require.Error(t, err)
	})
}

func TestChartFilename(t *testing.T) {
	require.Equal(t, "expenses_2024-03.png", ChartFilename(2024, time.March))
	require.Equal(t, "expenses_2026-12.png", ChartFilename(2026, time.December))
}
