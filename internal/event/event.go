// Package event builds and fans out lifecycle notifications after durable
// writes. Delivery is best-effort and at-least-once; sinks must tolerate
// duplicates.
package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/pkg/models"
)

// Action is the lifecycle transition an event describes.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionPublished Action = "published"
	ActionDeleted   Action = "deleted"
)

// CacheInvalidateName is the synthetic event used to flush cached content
// out-of-band, independent of any CRUD mutation.
const CacheInvalidateName = "cache.invalidate"

// TimeFormat is the wire format for event timestamps.
const TimeFormat = time.RFC3339

// Event is the normalized payload handed to sinks. Constructed, dispatched
// and discarded per mutation; nothing here is persisted.
type Event struct {
	Name       string     `json:"event"`
	EntityID   uuid.UUID  `json:"entity_id"`
	EntityType string     `json:"entity_type"`
	TenantID   *uuid.UUID `json:"tenant_id"`
	Slug       *string    `json:"slug,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// ForEntity builds a "{type}.{action}" event from the entity's state. For
// deletes, pass the pre-delete state.
func ForEntity(action Action, e *models.Entity) Event {
	return Event{
		Name:       strings.ToLower(e.Type) + "." + string(action),
		EntityID:   e.ID,
		EntityType: e.Type,
		TenantID:   e.TenantID,
		Slug:       e.Slug,
		OccurredAt: e.UpdatedAt,
	}
}

// CacheInvalidate builds the synthetic out-of-band invalidation event. The
// entity reference may be zero-valued when a whole tenant is flushed.
func CacheInvalidate(tenantID *uuid.UUID, entityType string, entityID uuid.UUID) Event {
	return Event{
		Name:       CacheInvalidateName,
		EntityID:   entityID,
		EntityType: entityType,
		TenantID:   tenantID,
		OccurredAt: time.Now().UTC(),
	}
}
