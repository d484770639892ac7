// Package billing implements the recurring bill period engine: calendar
// period arithmetic, pending payment generation and transactional
// settlement with roll-forward.
package billing

import (
	"fmt"
	"time"

	"gitlab.com/itfintrack/fintrack/internal/models"
)

// Billing days outside [1, MaxBillingDay] are rejected at bill creation so
// due dates never depend on February's length.
const MaxBillingDay = 28

// Period is one billing period: [Start, End) with the payment due on Due.
type Period struct {
	Start time.Time
	End   time.Time
	Due   time.Time
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddCalendarMonths advances a date by whole calendar months, clamping the
// day to the target month's last day when the source day does not exist
// there. Jan 31 + 1 month is Feb 28 (29 in leap years), never Mar 2/3.
// time.AddDate normalizes overflow days into the next month, so it cannot
// be used here.
func AddCalendarMonths(d time.Time, months int) time.Time {
	year := d.Year()
	month := int(d.Month()) - 1 + months
	year += month / 12
	month = month % 12
	if month < 0 {
		month += 12
		year--
	}
	m := time.Month(month + 1)

	day := d.Day()
	if max := daysInMonth(year, m); day > max {
		day = max
	}
	return time.Date(year, m, day, 0, 0, 0, 0, time.UTC)
}

// dueDate places the due date on billingDay within periodEnd's month. If the
// day does not exist in that month it falls back to day 28; with billing
// days validated into [1,28] the fallback never fires, but the original
// clamp is kept rather than silently switching to month-end clamping.
func dueDate(periodEnd time.Time, billingDay int) time.Time {
	day := billingDay
	if day > daysInMonth(periodEnd.Year(), periodEnd.Month()) {
		day = MaxBillingDay
	}
	return time.Date(periodEnd.Year(), periodEnd.Month(), day, 0, 0, 0, 0, time.UTC)
}

// NextPeriod computes the billing period that starts at anchor: the end of
// the last known period, or the bill's start date for the first period.
func NextPeriod(frequency string, billingDay int, anchor time.Time) (Period, error) {
	months, err := models.FrequencyMonths(frequency)
	if err != nil {
		return Period{}, err
	}
	if err := ValidateBillingDay(billingDay); err != nil {
		return Period{}, err
	}

	start := truncateToDate(anchor)
	end := AddCalendarMonths(start, months)
	return Period{
		Start: start,
		End:   end,
		Due:   dueDate(end, billingDay),
	}, nil
}

// ValidateBillingDay rejects billing days outside [1, 28].
func ValidateBillingDay(day int) error {
	if day < 1 || day > MaxBillingDay {
		return fmt.Errorf("%w: billing day must be between 1 and %d, got %d",
			ErrValidation, MaxBillingDay, day)
	}
	return nil
}

// NextDueDateEstimate projects when a bill's next payment would fall due,
// anchored on lastPaidEnd (the end of the last paid period) or the bill's
// start date when nothing has been paid. Unlike dueDate this clamps the
// billing day to the month's length, matching how the dashboard projected
// due dates historically.
func NextDueDateEstimate(frequency string, billingDay int, anchor time.Time) (time.Time, error) {
	months, err := models.FrequencyMonths(frequency)
	if err != nil {
		return time.Time{}, err
	}
	next := AddCalendarMonths(truncateToDate(anchor), months)
	day := billingDay
	if max := daysInMonth(next.Year(), next.Month()); day > max {
		day = max
	}
	return time.Date(next.Year(), next.Month(), day, 0, 0, 0, 0, time.UTC), nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
