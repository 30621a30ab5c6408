// Package tenant resolves which tenant is active for a given call. The
// resolution inputs all travel on the context; nothing in this package holds
// per-request mutable state.
package tenant

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	overrideKey  contextKey = "tenant_override"
)

// Principal describes the authenticated caller: its home tenant (nil for
// platform-operator credentials), its role, and the session identifier used
// to scope tenant-switch overrides.
type Principal struct {
	TenantID  *uuid.UUID
	Role      string
	SessionID string
	Scopes    []string
}

// WithPrincipal attaches the authenticated principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}

// WithOverride attaches a request-scoped tenant override to the context. The
// override outranks the principal's own tenant and lasts only as long as the
// context it was attached to.
func WithOverride(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, overrideKey, tenantID)
}

// OverrideFrom returns the request-scoped tenant override, if any.
func OverrideFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(overrideKey).(uuid.UUID)
	return id, ok
}
