package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Resolver answers "which tenant is active?" from competing signals.
// Priority, first hit wins:
//
//  1. request-scoped override (a privileged operator previewing another
//     tenant; attached to the context by middleware or SwitchTenant)
//  2. the authenticated principal's own tenant
//  3. a process-wide fallback (CLI and background jobs)
//
// Resolution is read-only. A miss on all three tiers means "tenant-less",
// which callers must treat as a valid state, never an error.
type Resolver struct {
	fallback *uuid.UUID
}

// NewResolver returns a Resolver with no process-wide fallback.
func NewResolver() *Resolver {
	return &Resolver{}
}

// NewResolverWithFallback returns a Resolver whose tier-3 fallback is fixed
// at construction. The fallback is immutable afterwards so concurrent
// resolution needs no locking.
func NewResolverWithFallback(tenantID uuid.UUID) *Resolver {
	return &Resolver{fallback: &tenantID}
}

// Resolve returns the active tenant id, or false when no tier produces one.
func (r *Resolver) Resolve(ctx context.Context) (uuid.UUID, bool) {
	if id, ok := OverrideFrom(ctx); ok {
		return id, true
	}
	if p, ok := PrincipalFrom(ctx); ok && p.TenantID != nil {
		return *p.TenantID, true
	}
	if r.fallback != nil {
		return *r.fallback, true
	}
	return uuid.Nil, false
}

// OverrideStore persists tenant-switch overrides per session so an operator's
// preview survives across requests but never leaks into other sessions.
type OverrideStore interface {
	SetOverride(ctx context.Context, sessionID string, tenantID uuid.UUID) error
	GetOverride(ctx context.Context, sessionID string) (uuid.UUID, bool, error)
	ClearOverride(ctx context.Context, sessionID string) error
}
