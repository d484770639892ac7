package audit

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/logger"
	"gitlab.com/itfintrack/fintrack/internal/models"
	"gitlab.com/itfintrack/fintrack/internal/repository"
)

// Entity is what the capture layer needs from an auditable domain object.
// All whitelisted entity kinds implement it in the models package.
type Entity interface {
	AuditID() int64
	AuditRepr() string
	AuditValues() map[string]string
}

// Recorder writes audit log entries. Writes are best-effort relative to the
// business operation: a failed audit insert is logged operationally and
// discarded, never surfaced to the caller.
type Recorder struct {
	repo       *repository.AuditLogRepository
	log        zerolog.Logger
	suppressed atomic.Int64
}

// NewRecorder creates a Recorder writing through the given database handle.
func NewRecorder(db database.PGXDB) *Recorder {
	return &Recorder{
		repo: repository.NewAuditLogRepository(db),
		log:  logger.Component("audit"),
	}
}

// Suppress disables audit capture until the returned release function runs.
// Used around bulk operations (data restore) where per-row entries would be
// meaningless. Callers must release on every exit path:
//
//	release := recorder.Suppress()
//	defer release()
//
// Suppression nests; capture resumes when every guard has been released.
// The release function is idempotent.
func (r *Recorder) Suppress() (release func()) {
	r.suppressed.Add(1)
	var done atomic.Bool
	return func() {
		if done.CompareAndSwap(false, true) {
			r.suppressed.Add(-1)
		}
	}
}

// Suppressed reports whether capture is currently disabled.
func (r *Recorder) Suppressed() bool {
	return r.suppressed.Load() > 0
}

// record persists one entry, swallowing any failure.
func (r *Recorder) record(ctx context.Context, entry *models.AuditLog) {
	if r.Suppressed() {
		return
	}
	if err := r.repo.Insert(ctx, entry); err != nil {
		r.log.Warn().Err(err).
			Str("action", entry.Action).
			Str("entity_kind", entry.EntityKind).
			Msg("audit write failed, entry dropped")
	}
}

func (r *Recorder) newEntry(actor ActorContext, action string) *models.AuditLog {
	username := actor.Username
	if username == "" {
		username = "Anonymous"
	}
	return &models.AuditLog{
		UserID:        actor.UserID,
		UserName:      username,
		UserRole:      actor.Role,
		Action:        action,
		RequestID:     actor.RequestID,
		IPAddress:     actor.IPAddress,
		UserAgent:     truncate(actor.UserAgent, 500),
		RequestPath:   truncate(actor.Path, 500),
		RequestMethod: actor.Method,
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// Change is one observed mutation in flight: the before snapshot captured
// prior to the write, waiting for the after state.
type Change struct {
	recorder   *Recorder
	kind       string
	before     map[string]string
	suppressed bool
}

// Observe captures the before snapshot of an entity about to be mutated.
// Pass an untyped nil before for a creation; the commit will classify it as
// Create. Observation happens immediately, before the caller persists
// anything. A change observed under suppression stays suppressed even when
// the guard is released before its commit; without that, the missing before
// snapshot would misclassify the mutation as a creation.
func (r *Recorder) Observe(kind string, before Entity) *Change {
	c := &Change{recorder: r, kind: kind, suppressed: r.Suppressed()}
	if before != nil && !c.suppressed {
		c.before = before.AuditValues()
	}
	return c
}

// Commit builds the after snapshot, classifies the mutation and records one
// audit entry. Safe to call after the business write committed; failures
// are swallowed.
func (c *Change) Commit(ctx context.Context, actor ActorContext, after Entity) {
	r := c.recorder
	if c.suppressed || r.Suppressed() {
		return
	}
	newValues := after.AuditValues()
	action, summary := Classify(c.kind, after.AuditRepr(), c.before, newValues)

	entry := r.newEntry(actor, action)
	id := after.AuditID()
	entry.EntityID = &id
	entry.EntityKind = c.kind
	entry.EntityRepr = truncate(after.AuditRepr(), 300)
	entry.OldValues = c.before
	entry.NewValues = newValues
	entry.ChangesSummary = summary
	r.record(ctx, entry)
}

// RecordDelete captures a hard deletion. It must run before the row
// disappears; new values stay empty.
func (r *Recorder) RecordDelete(ctx context.Context, actor ActorContext, kind string, target Entity) {
	if r.Suppressed() {
		return
	}
	entry := r.newEntry(actor, models.ActionDelete)
	id := target.AuditID()
	entry.EntityID = &id
	entry.EntityKind = kind
	entry.EntityRepr = truncate(target.AuditRepr(), 300)
	entry.OldValues = target.AuditValues()
	entry.ChangesSummary = fmt.Sprintf("Permanently deleted %s: %s", kind, target.AuditRepr())
	r.record(ctx, entry)
}

// RecordLogin records a successful authentication event.
func (r *Recorder) RecordLogin(ctx context.Context, actor ActorContext) {
	if r.Suppressed() {
		return
	}
	entry := r.newEntry(actor, models.ActionLogin)
	entry.EntityKind = models.EntityUser
	entry.EntityID = actor.UserID
	entry.EntityRepr = actor.Username
	entry.ChangesSummary = fmt.Sprintf("User %s logged in", actor.Username)
	r.record(ctx, entry)
}

// RecordLogout records a logout event.
func (r *Recorder) RecordLogout(ctx context.Context, actor ActorContext) {
	if r.Suppressed() {
		return
	}
	entry := r.newEntry(actor, models.ActionLogout)
	entry.EntityKind = models.EntityUser
	entry.EntityID = actor.UserID
	entry.EntityRepr = actor.Username
	entry.ChangesSummary = fmt.Sprintf("User %s logged out", actor.Username)
	r.record(ctx, entry)
}
