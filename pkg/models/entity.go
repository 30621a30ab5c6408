package models

import (
	"time"

	"github.com/google/uuid"
)

// Publish status values recognized on entities that carry a status enum.
const (
	PublishStatusDraft     = "draft"
	PublishStatusPending   = "pending"
	PublishStatusPublished = "published"
)

// Reserved attribute keys used when flattening an entity into a snapshot map.
// They never collide with user content because user attribute keys are plain
// field names while these carry the underscore prefix.
const (
	AttrSlug          = "_slug"
	AttrIsPublished   = "_is_published"
	AttrPublishStatus = "_publish_status"
)

// Entity is a generic tenant-scoped record: a page, a section, a menu, a
// service listing. The platform treats them uniformly; type-specific shape
// lives in the free-form Attributes map.
type Entity struct {
	ID            uuid.UUID      `db:"id"             json:"id"`
	TenantID      *uuid.UUID     `db:"tenant_id"      json:"tenant_id"`
	Type          string         `db:"entity_type"    json:"type"`
	Slug          *string        `db:"slug"           json:"slug,omitempty"`
	Attributes    map[string]any `db:"attributes"     json:"attributes"`
	IsPublished   bool           `db:"is_published"   json:"is_published"`
	PublishStatus string         `db:"publish_status" json:"publish_status"`
	CreatedAt     time.Time      `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"     json:"updated_at"`
}

// Published reports whether either publish indicator is in a published state.
// The boolean flag and the status enum are independent signals; either one
// being truthy counts.
func (e *Entity) Published() bool {
	return e.IsPublished || e.PublishStatus == PublishStatusPublished
}

// SnapshotAttrs flattens the entity's versioned state into a single map:
// the free-form attributes plus slug and both publish indicators under
// reserved keys. Version snapshots, diffs and restores all operate on
// this shape.
func (e *Entity) SnapshotAttrs() map[string]any {
	attrs := make(map[string]any, len(e.Attributes)+3)
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	if e.Slug != nil {
		attrs[AttrSlug] = *e.Slug
	}
	attrs[AttrIsPublished] = e.IsPublished
	attrs[AttrPublishStatus] = e.PublishStatus
	return attrs
}

// ApplySnapshotAttrs overwrites the entity's versioned state from a snapshot
// map produced by SnapshotAttrs. Unknown reserved keys are ignored.
func (e *Entity) ApplySnapshotAttrs(snapshot map[string]any) {
	attrs := make(map[string]any, len(snapshot))
	e.Slug = nil
	e.IsPublished = false
	e.PublishStatus = PublishStatusDraft
	for k, v := range snapshot {
		switch k {
		case AttrSlug:
			if s, ok := v.(string); ok {
				e.Slug = &s
			}
		case AttrIsPublished:
			if b, ok := v.(bool); ok {
				e.IsPublished = b
			}
		case AttrPublishStatus:
			if s, ok := v.(string); ok {
				e.PublishStatus = s
			}
		default:
			attrs[k] = v
		}
	}
	e.Attributes = attrs
}

// Clone returns a deep-enough copy for before/after comparison: scalar fields
// by value, the attribute map copied one level down.
func (e *Entity) Clone() *Entity {
	dup := *e
	if e.TenantID != nil {
		id := *e.TenantID
		dup.TenantID = &id
	}
	if e.Slug != nil {
		s := *e.Slug
		dup.Slug = &s
	}
	dup.Attributes = make(map[string]any, len(e.Attributes))
	for k, v := range e.Attributes {
		dup.Attributes[k] = v
	}
	return &dup
}
