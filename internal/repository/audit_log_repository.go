package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/models"
)

// AuditLogRepository handles audit log persistence. The table is
// append-only: there is no update or delete here on purpose.
type AuditLogRepository struct {
	db database.PGXDB
}

// NewAuditLogRepository creates a new AuditLogRepository.
func NewAuditLogRepository(db database.PGXDB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Insert appends one audit log entry.
func (r *AuditLogRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	oldJSON, err := marshalValues(entry.OldValues)
	if err != nil {
		return fmt.Errorf("failed to encode old values: %w", err)
	}
	newJSON, err := marshalValues(entry.NewValues)
	if err != nil {
		return fmt.Errorf("failed to encode new values: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO audit_logs (user_id, user_name, user_role, action, entity_kind,
			entity_id, entity_repr, old_values, new_values, changes_summary,
			request_id, ip_address, user_agent, request_path, request_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`, entry.UserID, entry.UserName, entry.UserRole, entry.Action, entry.EntityKind,
		entry.EntityID, entry.EntityRepr, oldJSON, newJSON, entry.ChangesSummary,
		entry.RequestID, entry.IPAddress, entry.UserAgent, entry.RequestPath,
		entry.RequestMethod,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func marshalValues(values map[string]string) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}

func unmarshalValues(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

const auditLogColumns = `id, user_id, user_name, user_role, action, entity_kind,
	entity_id, entity_repr, old_values, new_values, changes_summary, request_id,
	ip_address, user_agent, request_path, request_method, created_at`

func scanAuditLogs(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
},
) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	for rows.Next() {
		var e models.AuditLog
		var oldJSON, newJSON []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.UserRole, &e.Action,
			&e.EntityKind, &e.EntityID, &e.EntityRepr, &oldJSON, &newJSON,
			&e.ChangesSummary, &e.RequestID, &e.IPAddress, &e.UserAgent,
			&e.RequestPath, &e.RequestMethod, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		var err error
		if e.OldValues, err = unmarshalValues(oldJSON); err != nil {
			return nil, fmt.Errorf("failed to decode old values: %w", err)
		}
		if e.NewValues, err = unmarshalValues(newJSON); err != nil {
			return nil, fmt.Errorf("failed to decode new values: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}
	return entries, nil
}

// ListRecent retrieves the newest audit entries.
func (r *AuditLogRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+auditLogColumns+` FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()
	return scanAuditLogs(rows)
}

// ListByEntity retrieves the audit history of one entity, newest first.
func (r *AuditLogRepository) ListByEntity(ctx context.Context, entityKind string, entityID int64) ([]models.AuditLog, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+auditLogColumns+` FROM audit_logs
		 WHERE entity_kind = $1 AND entity_id = $2
		 ORDER BY created_at DESC, id DESC`,
		entityKind, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs by entity: %w", err)
	}
	defer rows.Close()
	return scanAuditLogs(rows)
}

// ListByUser retrieves audit entries recorded for one actor, newest first.
func (r *AuditLogRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+auditLogColumns+` FROM audit_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs by user: %w", err)
	}
	defer rows.Close()
	return scanAuditLogs(rows)
}

// CountSince counts entries created at or after the given time.
func (r *AuditLogRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE created_at >= $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	return count, nil
}
