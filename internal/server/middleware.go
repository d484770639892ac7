package server

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"gitlab.com/itfintrack/fintrack/internal/audit"
	"gitlab.com/itfintrack/fintrack/internal/repository"
)

type contextKey struct{ name string }

var actorKey = &contextKey{"actor"}

// actorMiddleware resolves the acting user from the X-Username header and
// attaches an audit.ActorContext carrying the request metadata. Unknown or
// missing usernames produce an anonymous actor; individual handlers decide
// what anonymous callers may do.
func (s *Server) actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := audit.Anonymous()

		if username := r.Header.Get("X-Username"); username != "" {
			user, err := repository.NewUserRepository(s.db).GetByUsername(r.Context(), username)
			if err == nil && user.IsActive && !user.IsSoftDeleted {
				actor = audit.NewActorContext(user.ID, user.Username, user.Role)
			}
		}

		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			actor.RequestID = reqID
		}
		actor.IPAddress = clientIP(r)
		actor.UserAgent = r.UserAgent()
		actor.Path = r.URL.Path
		actor.Method = r.Method

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) audit.ActorContext {
	if actor, ok := r.Context().Value(actorKey).(audit.ActorContext); ok {
		return actor
	}
	return audit.Anonymous()
}

// clientIP prefers the first X-Forwarded-For entry, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
