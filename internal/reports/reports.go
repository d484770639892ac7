// Package reports builds financial summaries: income/expense totals, a
// category breakdown and a rendered pie chart for the dashboard.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/go-analyze/charts"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/logger"
	"gitlab.com/itfintrack/fintrack/internal/repository"
)

// Service computes report data over the ledger.
type Service struct {
	db  database.PGXDB
	log zerolog.Logger
}

// NewService creates a reports Service.
func NewService(db database.PGXDB) *Service {
	return &Service{db: db, log: logger.Component("reports")}
}

// Summary is the financial overview for one date range.
type Summary struct {
	Start           time.Time                  `json:"start"`
	End             time.Time                  `json:"end"`
	TotalIncome     decimal.Decimal            `json:"total_income"`
	TotalExpenses   decimal.Decimal            `json:"total_expenses"`
	Balance         decimal.Decimal            `json:"balance"`
	PendingPayments decimal.Decimal            `json:"pending_payments"`
	BillsPaid       decimal.Decimal            `json:"bills_paid"`
	AuditEvents     int64                      `json:"audit_events"`
	Categories      []repository.CategoryTotal `json:"categories"`
}

// BuildSummary aggregates income and expenses for the half-open range
// [start, end). The bills-paid figure covers the month start falls in.
func (s *Service) BuildSummary(ctx context.Context, start, end time.Time) (*Summary, error) {
	incomes := repository.NewIncomeRepository(s.db)
	expenses := repository.NewExpenseRepository(s.db)
	payments := repository.NewBillPaymentRepository(s.db)

	totalIncome, err := incomes.TotalByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("income total: %w", err)
	}
	totalExpenses, err := expenses.TotalByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("expense total: %w", err)
	}
	pending, err := payments.PendingTotal(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending payments: %w", err)
	}
	billsPaid, err := payments.PaidTotalForMonth(ctx, start.Year(), start.Month())
	if err != nil {
		return nil, fmt.Errorf("paid bills total: %w", err)
	}
	auditEvents, err := repository.NewAuditLogRepository(s.db).CountSince(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("audit activity: %w", err)
	}
	breakdown, err := expenses.CategoryBreakdown(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}

	return &Summary{
		Start:           start,
		End:             end,
		TotalIncome:     totalIncome,
		TotalExpenses:   totalExpenses,
		Balance:         totalIncome.Sub(totalExpenses),
		PendingPayments: pending,
		BillsPaid:       billsPaid,
		AuditEvents:     auditEvents,
		Categories:      breakdown,
	}, nil
}

// MonthRange returns the first day of a month and the first day of the next,
// the half-open range reports run over.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// CategoryChart renders the category breakdown as a PNG pie chart.
func CategoryChart(breakdown []repository.CategoryTotal, title string) ([]byte, error) {
	if len(breakdown) == 0 {
		return nil, fmt.Errorf("no expenses to chart")
	}

	values := make([]float64, 0, len(breakdown))
	names := make([]string, 0, len(breakdown))
	for _, ct := range breakdown {
		names = append(names, ct.CategoryName)
		values = append(values, ct.Total.InexactFloat64())
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{Text: title}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}

// ChartFilename names the generated chart file, e.g. "expenses_2026-08.png".
func ChartFilename(year int, month time.Month) string {
	return fmt.Sprintf("expenses_%04d-%02d.png", year, month)
}
