// Package models defines the domain entities for the finance tracker.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the canonical format for date-only fields.
const DateFormat = "2006-01-02"

// User roles. Roles gate who may edit, approve and delete records.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleViewer  = "viewer"
)

// User represents an application user.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name"`
	Role          string    `json:"role"`
	IsActive      bool      `json:"is_active"`
	IsSoftDeleted bool      `json:"is_soft_deleted"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CanEdit reports whether the user may create or modify records.
func (u *User) CanEdit() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}

// CanApprove reports whether the user may approve or reject expenses.
func (u *User) CanApprove() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}

// CanDelete reports whether the user may delete records.
func (u *User) CanDelete() bool {
	return u.Role == RoleAdmin
}

// Category represents an expense/income category.
type Category struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	IsActive      bool      `json:"is_active"`
	IsSoftDeleted bool      `json:"is_soft_deleted"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Vendor represents a service provider or supplier.
type Vendor struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Contact       string    `json:"contact"`
	IsActive      bool      `json:"is_active"`
	IsSoftDeleted bool      `json:"is_soft_deleted"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IncomeSource represents where department funds come from.
type IncomeSource struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	IsActive      bool      `json:"is_active"`
	IsSoftDeleted bool      `json:"is_soft_deleted"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Income represents received funds.
type Income struct {
	ID            int64           `json:"id"`
	SourceID      *int64          `json:"source_id"`
	Source        *IncomeSource   `json:"source,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	CreatedBy     int64           `json:"created_by"`
	IsSoftDeleted bool            `json:"is_soft_deleted"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ExpenseStatus values for the approval workflow.
const (
	ExpenseStatusPending  = "pending"
	ExpenseStatusApproved = "approved"
	ExpenseStatusRejected = "rejected"
)

// Expense represents a department expense subject to approval.
type Expense struct {
	ID              int64           `json:"id"`
	CategoryID      int64           `json:"category_id"`
	Category        *Category       `json:"category,omitempty"`
	VendorID        *int64          `json:"vendor_id"`
	Vendor          *Vendor         `json:"vendor,omitempty"`
	LinkedIncomeID  *int64          `json:"linked_income_id"`
	Amount          decimal.Decimal `json:"amount"`
	Date            time.Time       `json:"date"`
	Description     string          `json:"description"`
	Purpose         string          `json:"purpose"`
	InvoiceNumber   string          `json:"invoice_number"`
	Status          string          `json:"status"`
	ApprovedBy      *int64          `json:"approved_by"`
	ApprovedAt      *time.Time      `json:"approved_at"`
	RejectionReason string          `json:"rejection_reason"`
	CreatedBy       int64           `json:"created_by"`
	IsSoftDeleted   bool            `json:"is_soft_deleted"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ExpenseBill is one invoice/receipt attached to an expense. Only the file
// metadata is tracked here; the bytes live in external storage.
type ExpenseBill struct {
	ID               int64     `json:"id"`
	ExpenseID        int64     `json:"expense_id"`
	StoredFilename   string    `json:"stored_filename"`
	OriginalFilename string    `json:"original_filename"`
	Description      string    `json:"description"`
	UploadedBy       int64     `json:"uploaded_by"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// Billing frequencies for recurring bills.
const (
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)

// FrequencyMonths returns the number of calendar months one billing period
// spans for the given frequency.
func FrequencyMonths(frequency string) (int, error) {
	switch frequency {
	case FrequencyMonthly:
		return 1, nil
	case FrequencyQuarterly:
		return 3, nil
	case FrequencyYearly:
		return 12, nil
	default:
		return 0, fmt.Errorf("unknown billing frequency %q", frequency)
	}
}

// RecurringBill is a subscription/contract that bills on a fixed cadence.
type RecurringBill struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	CategoryID    int64           `json:"category_id"`
	Category      *Category       `json:"category,omitempty"`
	VendorID      *int64          `json:"vendor_id"`
	Vendor        *Vendor         `json:"vendor,omitempty"`
	BaseAmount    decimal.Decimal `json:"base_amount"`
	Frequency     string          `json:"frequency"`
	BillingDay    int             `json:"billing_day"`
	StartDate     time.Time       `json:"start_date"`
	Description   string          `json:"description"`
	IsActive      bool            `json:"is_active"`
	CreatedBy     int64           `json:"created_by"`
	IsSoftDeleted bool            `json:"is_soft_deleted"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// BillPayment statuses. A payment moves pending -> paid exactly once.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Funding types for a bill payment. Internal funding settles from the
// department budget and creates a linked expense; external funding is paid
// directly by accounts and leaves no expense behind.
const (
	FundingInternal = "internal"
	FundingExternal = "external"
)

// BillPayment is one billing period's settlement record for a recurring bill.
type BillPayment struct {
	ID             int64           `json:"id"`
	BillID         int64           `json:"bill_id"`
	Bill           *RecurringBill  `json:"bill,omitempty"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	DueDate        time.Time       `json:"due_date"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	FundingType    string          `json:"funding_type"`
	LinkedIncomeID *int64          `json:"linked_income_id"`
	PaidDate       *time.Time      `json:"paid_date"`
	ExpenseID      *int64          `json:"expense_id"`
	Notes          string          `json:"notes"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsOverdue reports whether the payment is pending past its due date.
func (p *BillPayment) IsOverdue(today time.Time) bool {
	return p.Status == PaymentStatusPending && p.DueDate.Before(truncateToDate(today))
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
