// Package auth carries the identity resolved by the upstream auth
// collaborator through a request context.
package auth

import (
	"context"
	"slices"
)

type contextKey struct{}

// AuthContext is the caller identity. An empty Groups list places no
// restriction on which groups the actor may open.
type AuthContext struct {
	ActorID string
	Groups  []string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// Actor returns the actor id, or "" when the context carries no identity.
func Actor(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.ActorID
}

func CanAccess(ctx context.Context, group string) bool {
	ac, ok := FromContext(ctx)
	if !ok || ac.ActorID == "" {
		return false
	}
	return len(ac.Groups) == 0 || slices.Contains(ac.Groups, group)
}

// IsAdmin reports whether the actor may operate on data spanning every
// group. Listed admins qualify; with no list, so does any actor without a
// group restriction.
func IsAdmin(ctx context.Context, admins []string) bool {
	ac, ok := FromContext(ctx)
	if !ok || ac.ActorID == "" {
		return false
	}
	if len(admins) > 0 {
		return slices.Contains(admins, ac.ActorID)
	}
	return len(ac.Groups) == 0
}
