package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gitlab.com/itfintrack/fintrack/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddCalendarMonths(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{"plain month", date(2024, time.March, 15), 1, date(2024, time.April, 15)},
		{"jan 31 clamps to feb 29 in leap year", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"jan 31 clamps to feb 28", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"may 31 clamps to june 30", date(2024, time.May, 31), 1, date(2024, time.June, 30)},
		{"quarterly across year end", date(2024, time.November, 30), 3, date(2025, time.February, 28)},
		{"yearly from leap day", date(2024, time.February, 29), 12, date(2025, time.February, 28)},
		{"negative months", date(2024, time.March, 31), -1, date(2024, time.February, 29)},
		{"zero months", date(2024, time.July, 4), 0, date(2024, time.July, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, AddCalendarMonths(tt.start, tt.months))
		})
	}
}

func TestAddCalendarMonthsProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := date(
			rapid.IntRange(1990, 2100).Draw(t, "year"),
			time.Month(rapid.IntRange(1, 12).Draw(t, "month")),
			rapid.IntRange(1, 31).Draw(t, "day"),
		)
		months := rapid.IntRange(1, 48).Draw(t, "months")

		got := AddCalendarMonths(start, months)

		// The day never overshoots into the following month.
		wantMonths := (int(start.Month()) - 1 + months) % 12
		wantYear := start.Year() + (int(start.Month())-1+months)/12
		require.Equal(t, time.Month(wantMonths+1), got.Month())
		require.Equal(t, wantYear, got.Year())

		// The day is preserved unless the target month is shorter.
		if start.Day() <= daysInMonth(got.Year(), got.Month()) {
			require.Equal(t, start.Day(), got.Day())
		} else {
			require.Equal(t, daysInMonth(got.Year(), got.Month()), got.Day())
		}
	})
}

func TestNextPeriod(t *testing.T) {
	t.Run("monthly period with due date on billing day", func(t *testing.T) {
		p, err := NextPeriod(models.FrequencyMonthly, 5, date(2024, time.January, 10))
		require.NoError(t, err)
		require.Equal(t, date(2024, time.January, 10), p.Start)
		require.Equal(t, date(2024, time.February, 10), p.End)
		require.Equal(t, date(2024, time.February, 5), p.Due)
	})

	t.Run("quarterly period", func(t *testing.T) {
		p, err := NextPeriod(models.FrequencyQuarterly, 28, date(2024, time.January, 31))
		require.NoError(t, err)
		require.Equal(t, date(2024, time.April, 30), p.End)
		require.Equal(t, date(2024, time.April, 28), p.Due)
	})

	t.Run("yearly period", func(t *testing.T) {
		p, err := NextPeriod(models.FrequencyYearly, 1, date(2024, time.February, 29))
		require.NoError(t, err)
		require.Equal(t, date(2025, time.February, 28), p.End)
		require.Equal(t, date(2025, time.February, 1), p.Due)
	})

	t.Run("rejects unknown frequency", func(t *testing.T) {
		_, err := NextPeriod("weekly", 5, date(2024, time.January, 1))
		require.Error(t, err)
	})

	t.Run("rejects billing day outside range", func(t *testing.T) {
		_, err := NextPeriod(models.FrequencyMonthly, 29, date(2024, time.January, 1))
		require.ErrorIs(t, err, ErrValidation)
		_, err = NextPeriod(models.FrequencyMonthly, 0, date(2024, time.January, 1))
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("strips time of day from the anchor", func(t *testing.T) {
		anchor := time.Date(2024, time.January, 10, 17, 30, 12, 0, time.UTC)
		p, err := NextPeriod(models.FrequencyMonthly, 5, anchor)
		require.NoError(t, err)
		require.Equal(t, date(2024, time.January, 10), p.Start)
	})
}

func TestNextPeriodProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		frequency := rapid.SampledFrom([]string{
			models.FrequencyMonthly, models.FrequencyQuarterly, models.FrequencyYearly,
		}).Draw(t, "frequency")
		billingDay := rapid.IntRange(1, MaxBillingDay).Draw(t, "billingDay")
		anchor := date(
			rapid.IntRange(2000, 2050).Draw(t, "year"),
			time.Month(rapid.IntRange(1, 12).Draw(t, "month")),
			rapid.IntRange(1, 28).Draw(t, "day"),
		)

		p, err := NextPeriod(frequency, billingDay, anchor)
		require.NoError(t, err)

		// Periods always run forward and the due date sits in the end month
		// on the billing day. Billing days never exceed 28, so the due day
		// exists in every month.
		require.True(t, p.End.After(p.Start))
		require.Equal(t, p.End.Month(), p.Due.Month())
		require.Equal(t, billingDay, p.Due.Day())

		// Consecutive periods chain without gaps.
		next, err := NextPeriod(frequency, billingDay, p.End)
		require.NoError(t, err)
		require.Equal(t, p.End, next.Start)
	})
}

func TestValidateBillingDay(t *testing.T) {
	for day := 1; day <= MaxBillingDay; day++ {
		require.NoError(t, ValidateBillingDay(day))
	}
	require.ErrorIs(t, ValidateBillingDay(0), ErrValidation)
	require.ErrorIs(t, ValidateBillingDay(29), ErrValidation)
	require.ErrorIs(t, ValidateBillingDay(-3), ErrValidation)
}

func TestNextDueDateEstimate(t *testing.T) {
	t.Run("projects one period past the anchor", func(t *testing.T) {
		next, err := NextDueDateEstimate(models.FrequencyMonthly, 15, date(2024, time.March, 1))
		require.NoError(t, err)
		require.Equal(t, date(2024, time.April, 15), next)
	})

	t.Run("clamps the day to short months", func(t *testing.T) {
		// Historical bills may carry day 31 from before validation tightened.
		next, err := NextDueDateEstimate(models.FrequencyMonthly, 31, date(2024, time.January, 15))
		require.NoError(t, err)
		require.Equal(t, date(2024, time.February, 29), next)
	})

	t.Run("rejects unknown frequency", func(t *testing.T) {
		_, err := NextDueDateEstimate("daily", 5, date(2024, time.January, 1))
		require.Error(t, err)
	})
}
