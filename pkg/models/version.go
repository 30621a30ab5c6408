package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultInitialReason is recorded on the snapshot taken at entity creation.
const DefaultInitialReason = "Initial version"

// Version is an immutable point-in-time snapshot of an entity's significant
// attributes. It references its entity by (type, id) pair rather than a
// per-type foreign key: one table serves every entity type.
type Version struct {
	ID            uuid.UUID      `db:"id"             json:"id"`
	EntityType    string         `db:"entity_type"    json:"entity_type"`
	EntityID      uuid.UUID      `db:"entity_id"      json:"entity_id"`
	VersionNumber int            `db:"version_number" json:"version_number"`
	Snapshot      map[string]any `db:"snapshot"       json:"snapshot"`
	IsCurrent     bool           `db:"is_current"     json:"is_current"`
	Reason        *string        `db:"reason"         json:"reason,omitempty"`
	CreatedAt     time.Time      `db:"created_at"     json:"created_at"`
}
