package audit

import (
	"fmt"
	"sort"
	"strings"

	"gitlab.com/itfintrack/fintrack/internal/models"
)

// excludedFields never appear in change summaries. Snapshot builders already
// leave timestamps out; this list guards against any future snapshot that
// carries them or a credential field.
var excludedFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"password":   true,
}

// Classify derives the action kind from a before/after snapshot pair and
// returns it with a human-readable summary. Decision order matters: absence
// of a before snapshot wins, then the soft-delete flag transitions, then
// approval status transitions, then a plain update with a field diff.
func Classify(kind string, repr string, before, after map[string]string) (action, summary string) {
	if before == nil {
		return models.ActionCreate, fmt.Sprintf("Created %s: %s", kind, repr)
	}

	oldDeleted, oldHas := before["is_soft_deleted"]
	newDeleted, newHas := after["is_soft_deleted"]
	if oldHas && newHas {
		if oldDeleted == "false" && newDeleted == "true" {
			return models.ActionSoftDelete, fmt.Sprintf("Soft deleted %s: %s", kind, repr)
		}
		if oldDeleted == "true" && newDeleted == "false" {
			return models.ActionRestore, fmt.Sprintf("Restored %s: %s", kind, repr)
		}
	}

	oldStatus, oldHas := before["status"]
	newStatus, newHas := after["status"]
	if oldHas && newHas && oldStatus != newStatus {
		switch newStatus {
		case models.ExpenseStatusApproved:
			return models.ActionApprove, fmt.Sprintf("Approved %s: %s", kind, repr)
		case models.ExpenseStatusRejected:
			return models.ActionReject, fmt.Sprintf("Rejected %s: %s", kind, repr)
		}
	}

	return models.ActionUpdate, DiffSummary(before, after)
}

// DiffSummary lists every changed field as "field: 'old' → 'new'", joined
// with semicolons. Excluded noise fields are skipped and fields are sorted
// so summaries are stable.
func DiffSummary(before, after map[string]string) string {
	keys := make(map[string]bool, len(before)+len(after))
	for k := range before {
		keys[k] = true
	}
	for k := range after {
		keys[k] = true
	}

	var fields []string
	for k := range keys {
		if excludedFields[k] {
			continue
		}
		fields = append(fields, k)
	}
	sort.Strings(fields)

	var changes []string
	for _, k := range fields {
		oldVal := before[k]
		newVal := after[k]
		if oldVal != newVal {
			changes = append(changes, fmt.Sprintf("%s: '%s' → '%s'", k, oldVal, newVal))
		}
	}
	return strings.Join(changes, "; ")
}
