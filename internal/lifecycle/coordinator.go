// Package lifecycle orchestrates entity mutations: the tenant-scoped write,
// the version snapshot, and the event fan-out, in that fixed order. The
// write is the only fatal stage; versioning and events are best-effort and
// their failures are logged, counted and swallowed so a caller never sees a
// committed mutation fail because audit or notification machinery hiccuped.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/internal/event"
	"github.com/hamzaawan7/blackcms/internal/metrics"
	"github.com/hamzaawan7/blackcms/internal/store"
	"github.com/hamzaawan7/blackcms/internal/tenant"
	"github.com/hamzaawan7/blackcms/internal/version"
	"github.com/hamzaawan7/blackcms/pkg/models"
)

// Coordinator is the single entry point controllers and CLI jobs use for
// entity mutations and version operations.
type Coordinator struct {
	entities  *store.Scoped
	versions  *version.Engine
	bus       *event.Bus
	overrides tenant.OverrideStore
	metrics   *metrics.Metrics
}

// NewCoordinator wires the lifecycle stages together.
func NewCoordinator(entities *store.Scoped, versions *version.Engine, bus *event.Bus, overrides tenant.OverrideStore, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		entities:  entities,
		versions:  versions,
		bus:       bus,
		overrides: overrides,
		metrics:   m,
	}
}

// Mutate creates (id nil) or updates (id set) an entity. The scoped write
// commits first; only then do versioning and event dispatch run, so events
// always reflect durable state.
func (c *Coordinator) Mutate(ctx context.Context, entityType string, id *uuid.UUID, payload store.EntityPayload, reason string) (*models.Entity, error) {
	if id == nil {
		return c.create(ctx, entityType, payload, reason)
	}
	return c.update(ctx, entityType, *id, payload, reason)
}

func (c *Coordinator) create(ctx context.Context, entityType string, payload store.EntityPayload, reason string) (*models.Entity, error) {
	e, err := c.entities.Create(ctx, entityType, payload)
	if err != nil {
		c.metrics.IncMutationError(entityType, "create")
		return nil, err
	}
	c.metrics.IncMutation(entityType, "create")

	c.snapshot(ctx, e, nil, reason)

	c.bus.Publish(event.ForEntity(event.ActionCreated, e))
	if e.Published() {
		c.bus.Publish(event.ForEntity(event.ActionPublished, e))
	}
	return e, nil
}

func (c *Coordinator) update(ctx context.Context, entityType string, id uuid.UUID, payload store.EntityPayload, reason string) (*models.Entity, error) {
	before, err := c.entities.Get(ctx, entityType, id)
	if err != nil {
		c.metrics.IncMutationError(entityType, "update")
		return nil, err
	}

	after := before.Clone()
	// The tenant binding is fixed at create. The stores refuse to move the
	// row anyway, but the returned entity and the events built from it must
	// not claim a tenant the row never joined.
	payload.TenantID = store.Field[uuid.UUID]{}
	payload.ApplyTo(after)
	return c.writeForward(ctx, before, after, reason)
}

// writeForward commits the update, then runs the best-effort stages against
// the pre/post states. Restore funnels through here too: it is an ordinary
// mutation, not a hidden rollback.
func (c *Coordinator) writeForward(ctx context.Context, before, after *models.Entity, reason string) (*models.Entity, error) {
	if err := c.entities.Update(ctx, after); err != nil {
		c.metrics.IncMutationError(after.Type, "update")
		return nil, err
	}
	c.metrics.IncMutation(after.Type, "update")

	changed := version.ChangedFields(before.SnapshotAttrs(), after.SnapshotAttrs())
	c.snapshot(ctx, after, changed, reason)

	c.bus.Publish(event.ForEntity(event.ActionUpdated, after))
	if !before.Published() && after.Published() {
		c.bus.Publish(event.ForEntity(event.ActionPublished, after))
	}
	return after, nil
}

// Remove deletes an entity inside the active scope. The deleted event is
// built from the pre-delete state.
func (c *Coordinator) Remove(ctx context.Context, entityType string, id uuid.UUID) error {
	before, err := c.entities.Get(ctx, entityType, id)
	if err != nil {
		return err
	}
	if err := c.entities.Delete(ctx, entityType, id); err != nil {
		c.metrics.IncMutationError(entityType, "delete")
		return err
	}
	c.metrics.IncMutation(entityType, "delete")

	c.bus.Publish(event.ForEntity(event.ActionDeleted, before))
	return nil
}

// ListVersions returns the entity's versions, newest first. The entity must
// be visible inside the active scope.
func (c *Coordinator) ListVersions(ctx context.Context, entityType string, id uuid.UUID) ([]*models.Version, error) {
	if _, err := c.entities.Get(ctx, entityType, id); err != nil {
		return nil, err
	}
	return c.versions.List(ctx, entityType, id)
}

// Diff compares two stored versions of a scoped entity.
func (c *Coordinator) Diff(ctx context.Context, entityType string, id uuid.UUID, fromVersion, toVersion int) (version.Diff, error) {
	if _, err := c.entities.Get(ctx, entityType, id); err != nil {
		return nil, err
	}
	return c.versions.DiffVersions(ctx, entityType, id, fromVersion, toVersion)
}

// Restore overwrites the entity's current attributes with the named
// snapshot's and writes forward through the normal mutation path, so the
// restore itself produces a fresh version and lifecycle events.
func (c *Coordinator) Restore(ctx context.Context, entityType string, id uuid.UUID, versionNumber int) (*models.Entity, error) {
	before, err := c.entities.Get(ctx, entityType, id)
	if err != nil {
		return nil, err
	}
	v, err := c.versions.Get(ctx, entityType, id, versionNumber)
	if err != nil {
		return nil, err
	}

	after := before.Clone()
	after.ApplySnapshotAttrs(v.Snapshot)
	return c.writeForward(ctx, before, after, fmt.Sprintf("Restored to version %d", versionNumber))
}

// Invalidate publishes the synthetic cache.invalidate event for the active
// tenant, independent of any mutation. An empty entityType flushes all of
// the tenant's cached content.
func (c *Coordinator) Invalidate(ctx context.Context, entityType string) {
	var tenantID *uuid.UUID
	if id, ok := c.entities.Resolver().Resolve(ctx); ok {
		tenantID = &id
	}
	c.bus.Publish(event.CacheInvalidate(tenantID, entityType, uuid.Nil))
}

// SwitchTenant records a session-scoped override so a privileged operator
// previews another tenant's data. Authorization is the caller's concern.
func (c *Coordinator) SwitchTenant(ctx context.Context, sessionID string, tenantID uuid.UUID) error {
	if _, err := c.entities.Raw().GetTenant(ctx, tenantID); err != nil {
		return err
	}
	return c.overrides.SetOverride(ctx, sessionID, tenantID)
}

// ResetTenant clears the session's override, restoring the principal's own
// tenant as the resolution source.
func (c *Coordinator) ResetTenant(ctx context.Context, sessionID string) error {
	return c.overrides.ClearOverride(ctx, sessionID)
}

// CreateTenant registers a new tenant and announces it. Seed content is
// provisioned asynchronously by an external collaborator consuming the
// tenant.created event.
func (c *Coordinator) CreateTenant(ctx context.Context, name, slug string, settings map[string]any) (*models.Tenant, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	t := &models.Tenant{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		IsActive:  true,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.Settings == nil {
		t.Settings = map[string]any{}
	}
	if err := c.entities.Raw().CreateTenant(ctx, t); err != nil {
		return nil, err
	}

	c.bus.Publish(event.Event{
		Name:       "tenant.created",
		EntityID:   t.ID,
		EntityType: "tenant",
		TenantID:   &t.ID,
		Slug:       &t.Slug,
		OccurredAt: t.CreatedAt,
	})
	return t, nil
}

// DeleteTenant removes a tenant and everything it owns, then announces it.
func (c *Coordinator) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	if err := c.entities.Raw().DeleteTenant(ctx, id); err != nil {
		return err
	}
	c.bus.Publish(event.Event{
		Name:       "tenant.deleted",
		EntityID:   id,
		EntityType: "tenant",
		TenantID:   &id,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// snapshot runs the versioning stage best-effort: an error is logged and
// counted, never returned. The mutation already committed.
func (c *Coordinator) snapshot(ctx context.Context, e *models.Entity, changed []string, reason string) {
	v, err := c.versions.MaybeSnapshot(ctx, e, changed, reason)
	if err != nil {
		slog.Error("versioning stage failed",
			"stage", "versioning",
			"entity_type", e.Type,
			"entity_id", e.ID,
			"error", err,
		)
		c.metrics.IncStageFailure("versioning")
		return
	}
	if v != nil {
		c.metrics.IncVersion(e.Type)
	}
}
