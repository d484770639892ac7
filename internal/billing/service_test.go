package billing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/itfintrack/fintrack/internal/audit"
	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/models"
	"gitlab.com/itfintrack/fintrack/internal/repository"
)

type billingFixture struct {
	svc      *Service
	db       DB
	actor    audit.ActorContext
	category *models.Category
	ctx      context.Context
}

func setupBillingTest(t *testing.T) *billingFixture {
	t.Helper()

	tx := database.TestTxBeginner(t)
	ctx := context.Background()

	user := &models.User{Username: "billing_admin", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, repository.NewUserRepository(tx).Create(ctx, user))

	category, err := repository.NewCategoryRepository(tx).GetByName(ctx, "Hosting & Cloud")
	require.NoError(t, err)

	return &billingFixture{
		svc:      NewService(tx, audit.NewRecorder(tx)),
		db:       tx,
		actor:    audit.NewActorContext(user.ID, user.Username, user.Role),
		category: category,
		ctx:      ctx,
	}
}

func (f *billingFixture) createBill(t *testing.T, frequency string, billingDay int, start time.Time) (*models.RecurringBill, *models.BillPayment) {
	t.Helper()

	bill, first, err := f.svc.CreateBill(f.ctx, f.actor, CreateBillInput{
		Name:       "Cloud hosting",
		CategoryID: f.category.ID,
		BaseAmount: decimal.RequireFromString("89.99"),
		Frequency:  frequency,
		BillingDay: billingDay,
		StartDate:  start,
		IsActive:   true,
	})
	require.NoError(t, err)
	return bill, first
}

func TestCreateBill(t *testing.T) {
	f := setupBillingTest(t)

	t.Run("active bill gets its first pending payment", func(t *testing.T) {
		bill, first := f.createBill(t, models.FrequencyMonthly, 5, date(2024, time.January, 10))

		require.NotZero(t, bill.ID)
		require.NotNil(t, first)
		require.Equal(t, models.PaymentStatusPending, first.Status)
		require.Equal(t, date(2024, time.January, 10), first.PeriodStart)
		require.Equal(t, date(2024, time.February, 10), first.PeriodEnd)
		require.Equal(t, date(2024, time.February, 5), first.DueDate)
		require.True(t, first.Amount.Equal(bill.BaseAmount))

		entries, err := repository.NewAuditLogRepository(f.db).ListRecent(f.ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		require.Equal(t, models.ActionCreate, entries[0].Action)
		require.Equal(t, models.EntityBillPayment, entries[0].EntityKind)
		require.Equal(t, models.EntityRecurringBill, entries[1].EntityKind)
	})

	t.Run("inactive bill gets no payment", func(t *testing.T) {
		bill, first, err := f.svc.CreateBill(f.ctx, f.actor, CreateBillInput{
			Name:       "Dormant contract",
			CategoryID: f.category.ID,
			BaseAmount: decimal.RequireFromString("10.00"),
			Frequency:  models.FrequencyMonthly,
			BillingDay: 1,
			StartDate:  date(2024, time.June, 1),
			IsActive:   false,
		})
		require.NoError(t, err)
		require.Nil(t, first)

		pending, err := repository.NewBillPaymentRepository(f.db).GetPendingByBill(f.ctx, bill.ID)
		require.NoError(t, err)
		require.Nil(t, pending)
	})

	t.Run("rejects billing day 29", func(t *testing.T) {
		_, _, err := f.svc.CreateBill(f.ctx, f.actor, CreateBillInput{
			Name:       "Bad day",
			CategoryID: f.category.ID,
			BaseAmount: decimal.RequireFromString("10.00"),
			Frequency:  models.FrequencyMonthly,
			BillingDay: 29,
			StartDate:  date(2024, time.June, 1),
			IsActive:   true,
		})
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects anonymous actor", func(t *testing.T) {
		_, _, err := f.svc.CreateBill(f.ctx, audit.Anonymous(), CreateBillInput{
			Name:       "No owner",
			CategoryID: f.category.ID,
			BaseAmount: decimal.RequireFromString("10.00"),
			Frequency:  models.FrequencyMonthly,
			BillingDay: 1,
			StartDate:  date(2024, time.June, 1),
			IsActive:   true,
		})
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestGeneratePayment(t *testing.T) {
	f := setupBillingTest(t)
	bill, first := f.createBill(t, models.FrequencyMonthly, 5, date(2024, time.January, 10))

	t.Run("is a no-op while a pending payment exists", func(t *testing.T) {
		payment, created, err := f.svc.GeneratePayment(f.ctx, f.actor, bill.ID)
		require.NoError(t, err)
		require.False(t, created)
		require.Equal(t, first.ID, payment.ID)

		payments, err := repository.NewBillPaymentRepository(f.db).ListByBill(f.ctx, bill.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
	})
}

func TestBillingPermissions(t *testing.T) {
	f := setupBillingTest(t)
	bill, first := f.createBill(t, models.FrequencyMonthly, 5, date(2024, time.January, 10))

	viewerUser := &models.User{Username: "billing_viewer", Role: models.RoleViewer, IsActive: true}
	require.NoError(t, repository.NewUserRepository(f.db).Create(f.ctx, viewerUser))
	viewer := audit.NewActorContext(viewerUser.ID, viewerUser.Username, viewerUser.Role)

	t.Run("viewer cannot mutate bills", func(t *testing.T) {
		_, _, err := f.svc.CreateBill(f.ctx, viewer, CreateBillInput{
			Name:       "Unauthorized",
			CategoryID: f.category.ID,
			BaseAmount: decimal.RequireFromString("10.00"),
			Frequency:  models.FrequencyMonthly,
			BillingDay: 1,
			StartDate:  date(2024, time.June, 1),
			IsActive:   true,
		})
		require.ErrorIs(t, err, ErrPermission)

		_, _, err = f.svc.GeneratePayment(f.ctx, viewer, bill.ID)
		require.ErrorIs(t, err, ErrPermission)

		_, err = f.svc.SetBillActive(f.ctx, viewer, bill.ID, false)
		require.ErrorIs(t, err, ErrPermission)

		_, err = f.svc.Settle(f.ctx, viewer, first.ID, settleInput(models.FundingExternal))
		require.ErrorIs(t, err, ErrPermission)
	})

	t.Run("anonymous cannot mutate bills", func(t *testing.T) {
		_, _, err := f.svc.GeneratePayment(f.ctx, audit.Anonymous(), bill.ID)
		require.ErrorIs(t, err, ErrValidation)

		_, err = f.svc.Settle(f.ctx, audit.Anonymous(), first.ID, settleInput(models.FundingExternal))
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("nothing was settled or generated", func(t *testing.T) {
		payment, err := repository.NewBillPaymentRepository(f.db).GetByID(f.ctx, first.ID)
		require.NoError(t, err)
		require.Equal(t, models.PaymentStatusPending, payment.Status)

		payments, err := repository.NewBillPaymentRepository(f.db).ListByBill(f.ctx, bill.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)
	})
}

func TestSetBillActive(t *testing.T) {
	f := setupBillingTest(t)
	bill, first := f.createBill(t, models.FrequencyMonthly, 5, date(2024, time.January, 10))

	t.Run("deactivating keeps the open payment", func(t *testing.T) {
		updated, err := f.svc.SetBillActive(f.ctx, f.actor, bill.ID, false)
		require.NoError(t, err)
		require.False(t, updated.IsActive)

		pending, err := repository.NewBillPaymentRepository(f.db).GetPendingByBill(f.ctx, bill.ID)
		require.NoError(t, err)
		require.NotNil(t, pending)
		require.Equal(t, first.ID, pending.ID)

		entries, err := repository.NewAuditLogRepository(f.db).ListByEntity(f.ctx, models.EntityRecurringBill, bill.ID)
		require.NoError(t, err)
		require.Equal(t, models.ActionUpdate, entries[0].Action)
		require.Contains(t, entries[0].ChangesSummary, "is_active")
	})

	t.Run("activating a dormant bill generates its first payment", func(t *testing.T) {
		dormant, _, err := f.svc.CreateBill(f.ctx, f.actor, CreateBillInput{
			Name:       "Dormant contract",
			CategoryID: f.category.ID,
			BaseAmount: decimal.RequireFromString("45.00"),
			Frequency:  models.FrequencyMonthly,
			BillingDay: 10,
			StartDate:  date(2024, time.March, 1),
			IsActive:   false,
		})
		require.NoError(t, err)

		updated, err := f.svc.SetBillActive(f.ctx, f.actor, dormant.ID, true)
		require.NoError(t, err)
		require.True(t, updated.IsActive)

		pending, err := repository.NewBillPaymentRepository(f.db).GetPendingByBill(f.ctx, dormant.ID)
		require.NoError(t, err)
		require.NotNil(t, pending)
		require.Equal(t, date(2024, time.March, 1), pending.PeriodStart)
		require.Equal(t, date(2024, time.April, 1), pending.PeriodEnd)

		t.Run("activating again is a no-op", func(t *testing.T) {
			_, err := f.svc.SetBillActive(f.ctx, f.actor, dormant.ID, true)
			require.NoError(t, err)

			payments, err := repository.NewBillPaymentRepository(f.db).ListByBill(f.ctx, dormant.ID)
			require.NoError(t, err)
			require.Len(t, payments, 1)
		})
	})

	t.Run("rejects a soft-deleted bill", func(t *testing.T) {
		bills := repository.NewRecurringBillRepository(f.db)
		bill.IsSoftDeleted = true
		require.NoError(t, bills.Update(f.ctx, bill))

		_, err := f.svc.SetBillActive(f.ctx, f.actor, bill.ID, true)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func settleInput(funding string) SettleInput {
	return SettleInput{
		Amount:      decimal.RequireFromString("92.50"),
		PaidDate:    date(2024, time.February, 4),
		FundingType: funding,
		Notes:       "bank transfer",
	}
}

func TestSettleInternallyFunded(t *testing.T) {
	f := setupBillingTest(t)
	bill, first := f.createBill(t, models.FrequencyMonthly, 5, date(2024, time.January, 10))

	paid, err := f.svc.Settle(f.ctx, f.actor, first.ID, settleInput(models.FundingInternal))
	require.NoError(t, err)

	require.Equal(t, models.PaymentStatusPaid, paid.Status)
	require.Equal(t, models.FundingInternal, paid.FundingType)
	require.True(t, paid.Amount.Equal(decimal.RequireFromString("92.50")))
	require.NotNil(t, paid.PaidDate)
	require.Equal(t, date(2024, time.February, 4), *paid.PaidDate)

	// An internally funded settlement leaves a pending-approval expense.
	require.NotNil(t, paid.ExpenseID)
	expense, err := repository.NewExpenseRepository(f.db).GetByID(f.ctx, *paid.ExpenseID)
	require.NoError(t, err)
	require.Equal(t, models.ExpenseStatusPending, expense.Status)
	require.Equal(t, bill.CategoryID, expense.CategoryID)
	require.True(t, expense.Amount.Equal(paid.Amount))
	require.Equal(t, "Cloud hosting - 2024-01-10 to 2024-02-10", expense.Description)
	require.Equal(t, "Recurring bill payment: Cloud hosting", expense.Purpose)

	// The bill rolled forward to its next pending period.
	next, err := repository.NewBillPaymentRepository(f.db).GetPendingByBill(f.ctx, bill.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Equal(t, first.PeriodEnd, next.PeriodStart)
	require.Equal(t, date(2024, time.March, 10), next.PeriodEnd)
	require.Equal(t, date(2024, time.March, 5), next.DueDate)
	require.True(t, next.Amount.Equal(bill.BaseAmount), "roll-forward uses the base amount")
}

func TestSettleExternallyFunded(t *testing.T) {
	f := setupBillingTest(t)
	bill, first := f.createBill(t, models.FrequencyQuarterly, 28, date(2024, time.January, 31))

	paid, err := f.svc.Settle(f.ctx, f.actor, first.ID, settleInput(models.FundingExternal))
	require.NoError(t, err)

	require.Equal(t, models.PaymentStatusPaid, paid.Status)
	require.Nil(t, paid.ExpenseID, "externally funded settlements create no expense")

	// Quarterly roll-forward clamps through short months.
	next, err := repository.NewBillPaymentRepository(f.db).GetPendingByBill(f.ctx, bill.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Equal(t, date(2024, time.April, 30), next.PeriodStart)
	require.Equal(t, date(2024, time.July, 30), next.PeriodEnd)
}

func TestSettleRejectsNonPending(t *testing.T) {
	f := setupBillingTest(t)
	_, first := f.createBill(t, models.FrequencyMonthly, 5, date(2024, time.January, 10))

	_, err := f.svc.Settle(f.ctx, f.actor, first.ID, settleInput(models.FundingExternal))
	require.NoError(t, err)

	_, err = f.svc.Settle(f.ctx, f.actor, first.ID, settleInput(models.FundingExternal))
	require.ErrorIs(t, err, ErrNotPending)
}

func TestSettleValidation(t *testing.T) {
	f := setupBillingTest(t)
	_, first := f.createBill(t, models.FrequencyMonthly, 5, date(2024, time.January, 10))

	t.Run("rejects non-positive amount", func(t *testing.T) {
		in := settleInput(models.FundingInternal)
		in.Amount = decimal.Zero
		_, err := f.svc.Settle(f.ctx, f.actor, first.ID, in)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects unknown funding type", func(t *testing.T) {
		in := settleInput("petty_cash")
		_, err := f.svc.Settle(f.ctx, f.actor, first.ID, in)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("failed settlement leaves the payment pending", func(t *testing.T) {
		payment, err := repository.NewBillPaymentRepository(f.db).GetByID(f.ctx, first.ID)
		require.NoError(t, err)
		require.Equal(t, models.PaymentStatusPending, payment.Status)
		require.Nil(t, payment.ExpenseID)
	})
}

func TestSettleAtomicity(t *testing.T) {
	f := setupBillingTest(t)
	bill, first := f.createBill(t, models.FrequencyMonthly, 5, date(2024, time.January, 10))

	// DECIMAL(12,2) cannot hold this amount, so the expense insert (the
	// first write of an internally funded settlement) fails mid-transaction.
	in := settleInput(models.FundingInternal)
	in.Amount = decimal.RequireFromString("100000000000.00")
	_, err := f.svc.Settle(f.ctx, f.actor, first.ID, in)
	require.Error(t, err)

	payments := repository.NewBillPaymentRepository(f.db)

	payment, err := payments.GetByID(f.ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPending, payment.Status)
	require.Nil(t, payment.ExpenseID)
	require.Nil(t, payment.PaidDate)

	// No expense and no rolled-forward period survived the rollback.
	expenses, err := repository.NewExpenseRepository(f.db).ListByStatus(f.ctx, models.ExpenseStatusPending, 10)
	require.NoError(t, err)
	require.Empty(t, expenses)

	all, err := payments.ListByBill(f.ctx, bill.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestNextDueDate(t *testing.T) {
	f := setupBillingTest(t)
	bill, first := f.createBill(t, models.FrequencyMonthly, 15, date(2024, time.January, 1))

	t.Run("anchors on the start date before any payment", func(t *testing.T) {
		next, err := f.svc.NextDueDate(f.ctx, bill)
		require.NoError(t, err)
		require.Equal(t, date(2024, time.February, 15), next)
	})

	t.Run("anchors on the last paid period end", func(t *testing.T) {
		_, err := f.svc.Settle(f.ctx, f.actor, first.ID, settleInput(models.FundingExternal))
		require.NoError(t, err)

		next, err := f.svc.NextDueDate(f.ctx, bill)
		require.NoError(t, err)
		require.Equal(t, date(2024, time.March, 15), next)
	})
}

func TestIsBillOverdue(t *testing.T) {
	f := setupBillingTest(t)
	bill, first := f.createBill(t, models.FrequencyMonthly, 5, date(2024, time.January, 10))

	overdue, err := f.svc.IsBillOverdue(f.ctx, bill, date(2024, time.February, 4))
	require.NoError(t, err)
	require.False(t, overdue)

	overdue, err = f.svc.IsBillOverdue(f.ctx, bill, date(2024, time.February, 6))
	require.NoError(t, err)
	require.True(t, overdue)

	_, err = f.svc.Settle(f.ctx, f.actor, first.ID, settleInput(models.FundingExternal))
	require.NoError(t, err)

	// The rolled-forward payment is due 2024-03-05.
	overdue, err = f.svc.IsBillOverdue(f.ctx, bill, date(2024, time.February, 20))
	require.NoError(t, err)
	require.False(t, overdue)
}

func TestRecentPeriods(t *testing.T) {
	f := setupBillingTest(t)
	_, first := f.createBill(t, models.FrequencyMonthly, 5, date(2024, time.January, 10))

	_, err := f.svc.Settle(f.ctx, f.actor, first.ID, settleInput(models.FundingInternal))
	require.NoError(t, err)

	today := date(2024, time.March, 1)
	months, err := f.svc.RecentPeriods(f.ctx, first.BillID, 3, today)
	require.NoError(t, err)
	require.Len(t, months, 3)

	// January's period was paid, February's rolled-forward period is pending.
	require.Equal(t, time.January, months[0].Month)
	require.True(t, months[0].Paid)
	require.NotNil(t, months[0].Amount)

	require.Equal(t, time.February, months[1].Month)
	require.True(t, months[1].Pending)

	require.Equal(t, time.March, months[2].Month)
	require.False(t, months[2].Paid)
	require.False(t, months[2].Pending)
}
