package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/internal/tenant"
	"github.com/hamzaawan7/blackcms/pkg/models"
)

// Scoped wraps a Store so every entity read is filtered by, and every create
// is stamped with, the tenant the resolver produces for the call's context.
// When no tenant resolves, no filter is applied: a system or superuser
// context sees all rows. That escape hatch is deliberate and auditable, not
// an accident.
type Scoped struct {
	store    Store
	resolver *tenant.Resolver
	bypass   bool
}

// NewScoped creates a tenant-scoped view over the raw store.
func NewScoped(s Store, r *tenant.Resolver) *Scoped {
	return &Scoped{store: s, resolver: r}
}

// Unscoped returns a view that skips tenant filtering entirely. For
// administrative cross-tenant queries only.
func (s *Scoped) Unscoped() *Scoped {
	return &Scoped{store: s.store, resolver: s.resolver, bypass: true}
}

// Raw exposes the wrapped store for collaborators that manage their own
// scoping (versioning, webhook lookups).
func (s *Scoped) Raw() Store {
	return s.store
}

func (s *Scoped) scope(ctx context.Context) Scope {
	if s.bypass {
		return Unscoped()
	}
	if id, ok := s.resolver.Resolve(ctx); ok {
		return ScopeTenant(id)
	}
	return Unscoped()
}

// Create builds a new entity from the payload and persists it. If the
// payload carries no tenant, the resolved tenant is stamped on; if none
// resolves either, the entity is created tenant-less (system records only).
func (s *Scoped) Create(ctx context.Context, entityType string, p EntityPayload) (*models.Entity, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	e := &models.Entity{
		ID:            uuid.New(),
		Type:          entityType,
		Attributes:    map[string]any{},
		PublishStatus: models.PublishStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.ApplyTo(e)
	if e.TenantID == nil && !s.bypass {
		if id, ok := s.resolver.Resolve(ctx); ok {
			e.TenantID = &id
		}
	}
	if err := s.store.CreateEntity(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns the entity if it exists inside the active scope. A row owned
// by another tenant is indistinguishable from a missing row.
func (s *Scoped) Get(ctx context.Context, entityType string, id uuid.UUID) (*models.Entity, error) {
	return s.store.GetEntity(ctx, entityType, id, s.scope(ctx))
}

// Query lists entities matching the filter inside the active scope.
func (s *Scoped) Query(ctx context.Context, filter EntityFilter) ([]*models.Entity, int, error) {
	return s.store.QueryEntities(ctx, filter, s.scope(ctx))
}

// Update writes the entity back, scoped the same way as reads. The updated
// timestamp is advanced here so callers never forget it.
func (s *Scoped) Update(ctx context.Context, e *models.Entity) error {
	e.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	return s.store.UpdateEntity(ctx, e, s.scope(ctx))
}

// Delete removes the entity and its versions if it is inside the active scope.
func (s *Scoped) Delete(ctx context.Context, entityType string, id uuid.UUID) error {
	return s.store.DeleteEntity(ctx, entityType, id, s.scope(ctx))
}

// Resolver exposes the tenant resolver for collaborators that need the
// active tenant id itself (event payloads, cache keys).
func (s *Scoped) Resolver() *tenant.Resolver {
	return s.resolver
}
