// Package audit implements the audit capture layer: before/after snapshot
// diffing, action classification and append-only log recording. Capture is
// explicit: the CRUD layer observes an entity before mutating it and commits
// the observation afterwards, instead of hooking persistence events.
package audit

import "github.com/google/uuid"

// ActorContext carries the authenticated actor and request metadata into
// every audit-recording call. It replaces ambient request state so the
// capture layer is testable without a request pipeline.
type ActorContext struct {
	UserID    *int64
	Username  string
	Role      string
	RequestID string
	IPAddress string
	UserAgent string
	Path      string
	Method    string
}

// NewActorContext builds a context for an authenticated actor with a fresh
// request correlation id.
func NewActorContext(userID int64, username, role string) ActorContext {
	return ActorContext{
		UserID:    &userID,
		Username:  username,
		Role:      role,
		RequestID: uuid.NewString(),
	}
}

// SystemActor returns the context used for background/system operations
// that run outside a request.
func SystemActor() ActorContext {
	return ActorContext{
		Username:  "system",
		RequestID: uuid.NewString(),
	}
}

// Anonymous returns the context for unauthenticated events.
func Anonymous() ActorContext {
	return ActorContext{
		Username:  "Anonymous",
		RequestID: uuid.NewString(),
	}
}
