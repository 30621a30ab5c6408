package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated organization. Every tenant-scoped entity
// belongs to exactly one tenant.
type Tenant struct {
	ID        uuid.UUID      `db:"id"         json:"id"`
	Name      string         `db:"name"       json:"name"`
	Slug      string         `db:"slug"       json:"slug"`
	IsActive  bool           `db:"is_active"  json:"is_active"`
	Settings  map[string]any `db:"settings"   json:"settings"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
