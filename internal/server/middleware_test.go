package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	t.Run("uses first forwarded address", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/health", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		require.Equal(t, "203.0.113.9", clientIP(r))
	})

	t.Run("falls back to remote address", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/health", nil)
		r.RemoteAddr = "192.0.2.4:51234"
		require.Equal(t, "192.0.2.4", clientIP(r))
	})

	t.Run("keeps remote address without a port", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/health", nil)
		r.RemoteAddr = "192.0.2.4"
		require.Equal(t, "192.0.2.4", clientIP(r))
	})
}

func TestActorFromDefaultsToAnonymous(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/health", nil)
	actor := actorFrom(r)
	require.Nil(t, actor.UserID)
	require.Equal(t, "Anonymous", actor.Username)
}
