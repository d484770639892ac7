package models

import (
	"fmt"
	"strconv"
	"time"
)

// Audit snapshots are fixed field-name -> stringified-value maps built per
// entity kind. Non-primitive values (dates, decimals, references) are
// converted to stable string forms so that before/after diffing compares
// text, never live objects. Timestamp columns are deliberately left out;
// they change on every save and would drown the diff.

func snapDate(t time.Time) string {
	return t.Format(DateFormat)
}

func snapDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateFormat)
}

func snapIDPtr(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func snapBool(b bool) string {
	return strconv.FormatBool(b)
}

// AuditID returns the entity id for audit records.
func (u *User) AuditID() int64 { return u.ID }

// AuditRepr returns the display form stored on audit entries.
func (u *User) AuditRepr() string { return u.Username }

// AuditValues returns the audit snapshot of the user. The password hash is
// never part of a snapshot.
func (u *User) AuditValues() map[string]string {
	return map[string]string{
		"username":        u.Username,
		"display_name":    u.DisplayName,
		"role":            u.Role,
		"is_active":       snapBool(u.IsActive),
		"is_soft_deleted": snapBool(u.IsSoftDeleted),
	}
}

func (c *Category) AuditID() int64 { return c.ID }

func (c *Category) AuditRepr() string { return c.Name }

func (c *Category) AuditValues() map[string]string {
	return map[string]string{
		"name":            c.Name,
		"is_active":       snapBool(c.IsActive),
		"is_soft_deleted": snapBool(c.IsSoftDeleted),
	}
}

func (v *Vendor) AuditID() int64 { return v.ID }

func (v *Vendor) AuditRepr() string { return v.Name }

func (v *Vendor) AuditValues() map[string]string {
	return map[string]string{
		"name":            v.Name,
		"contact":         v.Contact,
		"is_active":       snapBool(v.IsActive),
		"is_soft_deleted": snapBool(v.IsSoftDeleted),
	}
}

func (s *IncomeSource) AuditID() int64 { return s.ID }

func (s *IncomeSource) AuditRepr() string { return s.Name }

func (s *IncomeSource) AuditValues() map[string]string {
	return map[string]string{
		"name":            s.Name,
		"description":     s.Description,
		"is_active":       snapBool(s.IsActive),
		"is_soft_deleted": snapBool(s.IsSoftDeleted),
	}
}

func (i *Income) AuditID() int64 { return i.ID }

func (i *Income) AuditRepr() string {
	return fmt.Sprintf("Income %s (%s)", i.Amount.StringFixed(2), snapDate(i.Date))
}

func (i *Income) AuditValues() map[string]string {
	return map[string]string{
		"source_id":       snapIDPtr(i.SourceID),
		"amount":          i.Amount.StringFixed(2),
		"date":            snapDate(i.Date),
		"description":     i.Description,
		"is_soft_deleted": snapBool(i.IsSoftDeleted),
	}
}

func (e *Expense) AuditID() int64 { return e.ID }

func (e *Expense) AuditRepr() string {
	return fmt.Sprintf("Expense %s (%s)", e.Amount.StringFixed(2), snapDate(e.Date))
}

func (e *Expense) AuditValues() map[string]string {
	return map[string]string{
		"category_id":      strconv.FormatInt(e.CategoryID, 10),
		"vendor_id":        snapIDPtr(e.VendorID),
		"linked_income_id": snapIDPtr(e.LinkedIncomeID),
		"amount":           e.Amount.StringFixed(2),
		"date":             snapDate(e.Date),
		"description":      e.Description,
		"purpose":          e.Purpose,
		"invoice_number":   e.InvoiceNumber,
		"status":           e.Status,
		"approved_by":      snapIDPtr(e.ApprovedBy),
		"rejection_reason": e.RejectionReason,
		"is_soft_deleted":  snapBool(e.IsSoftDeleted),
	}
}

func (b *ExpenseBill) AuditID() int64 { return b.ID }

func (b *ExpenseBill) AuditRepr() string { return b.OriginalFilename }

func (b *ExpenseBill) AuditValues() map[string]string {
	return map[string]string{
		"expense_id":        strconv.FormatInt(b.ExpenseID, 10),
		"stored_filename":   b.StoredFilename,
		"original_filename": b.OriginalFilename,
		"description":       b.Description,
	}
}

func (b *RecurringBill) AuditID() int64 { return b.ID }

func (b *RecurringBill) AuditRepr() string {
	return fmt.Sprintf("%s - %s/%s", b.Name, b.BaseAmount.StringFixed(2), b.Frequency)
}

func (b *RecurringBill) AuditValues() map[string]string {
	return map[string]string{
		"name":            b.Name,
		"category_id":     strconv.FormatInt(b.CategoryID, 10),
		"vendor_id":       snapIDPtr(b.VendorID),
		"base_amount":     b.BaseAmount.StringFixed(2),
		"frequency":       b.Frequency,
		"billing_day":     strconv.Itoa(b.BillingDay),
		"start_date":      snapDate(b.StartDate),
		"description":     b.Description,
		"is_active":       snapBool(b.IsActive),
		"is_soft_deleted": snapBool(b.IsSoftDeleted),
	}
}

func (p *BillPayment) AuditID() int64 { return p.ID }

func (p *BillPayment) AuditRepr() string {
	return fmt.Sprintf("Payment %s to %s", snapDate(p.PeriodStart), snapDate(p.PeriodEnd))
}

func (p *BillPayment) AuditValues() map[string]string {
	return map[string]string{
		"bill_id":          strconv.FormatInt(p.BillID, 10),
		"period_start":     snapDate(p.PeriodStart),
		"period_end":       snapDate(p.PeriodEnd),
		"due_date":         snapDate(p.DueDate),
		"amount":           p.Amount.StringFixed(2),
		"status":           p.Status,
		"funding_type":     p.FundingType,
		"linked_income_id": snapIDPtr(p.LinkedIncomeID),
		"paid_date":        snapDatePtr(p.PaidDate),
		"expense_id":       snapIDPtr(p.ExpenseID),
		"notes":            p.Notes,
	}
}
