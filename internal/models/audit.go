package models

import "time"

// Audit action kinds. Create/update/soft-delete/restore/approve/reject are
// derived from before/after snapshots; delete is captured before a hard row
// removal; login/logout come straight from the auth events.
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionSoftDelete = "soft_delete"
	ActionRestore    = "restore"
	ActionApprove    = "approve"
	ActionReject     = "reject"
	ActionLogin      = "login"
	ActionLogout     = "logout"
)

// Entity kinds whitelisted for audit capture.
const (
	EntityUser          = "User"
	EntityCategory      = "Category"
	EntityVendor        = "Vendor"
	EntityIncomeSource  = "IncomeSource"
	EntityIncome        = "Income"
	EntityExpense       = "Expense"
	EntityExpenseBill   = "ExpenseBill"
	EntityRecurringBill = "RecurringBill"
	EntityBillPayment   = "BillPayment"
)

// AuditLog is one immutable record of a state-changing or security-relevant
// event. Rows are append-only; the username and role are denormalized so the
// trail survives actor account removal.
type AuditLog struct {
	ID             int64             `json:"id"`
	UserID         *int64            `json:"user_id"`
	UserName       string            `json:"user_name"`
	UserRole       string            `json:"user_role"`
	Action         string            `json:"action"`
	EntityKind     string            `json:"entity_kind"`
	EntityID       *int64            `json:"entity_id"`
	EntityRepr     string            `json:"entity_repr"`
	OldValues      map[string]string `json:"old_values,omitempty"`
	NewValues      map[string]string `json:"new_values,omitempty"`
	ChangesSummary string            `json:"changes_summary"`
	RequestID      string            `json:"request_id"`
	IPAddress      string            `json:"ip_address"`
	UserAgent      string            `json:"user_agent"`
	RequestPath    string            `json:"request_path"`
	RequestMethod  string            `json:"request_method"`
	CreatedAt      time.Time         `json:"created_at"`
}
