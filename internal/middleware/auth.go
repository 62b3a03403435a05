package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/homeledger/internal/auth"
)

// Headers set by the upstream auth proxy.
const (
	ActorHeader  = "X-Actor-ID"
	GroupsHeader = "X-Actor-Groups"
)

// RequireActor reads the identity headers and populates AuthContext.
// Requests without an actor are rejected with 401.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actor == "" {
			writeError(w, http.StatusUnauthorized, "missing actor identity")
			return
		}

		var groups []string
		for _, g := range strings.Split(r.Header.Get(GroupsHeader), ",") {
			if g = strings.TrimSpace(g); g != "" {
				groups = append(groups, g)
			}
		}

		ctx := auth.WithAuth(r.Context(), auth.AuthContext{ActorID: actor, Groups: groups})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireGroup rejects requests whose {group} path segment the actor may
// not access.
func RequireGroup(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.CanAccess(r.Context(), r.PathValue("group")) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects actors that auth.IsAdmin does not accept.
func RequireAdmin(admins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.IsAdmin(r.Context(), admins) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
