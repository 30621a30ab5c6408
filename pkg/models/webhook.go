package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEndpoint is a per-tenant registration for lifecycle event delivery.
// Events lists the event names the endpoint subscribes to; an empty list
// means all events.
type WebhookEndpoint struct {
	ID        uuid.UUID  `db:"id"         json:"id"`
	TenantID  *uuid.UUID `db:"tenant_id"  json:"tenant_id"`
	URL       string     `db:"url"        json:"url"`
	Secret    string     `db:"secret"     json:"-"`
	Events    []string   `db:"events"     json:"events"`
	IsActive  bool       `db:"is_active"  json:"is_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Subscribed reports whether the endpoint wants the named event.
func (w *WebhookEndpoint) Subscribed(eventName string) bool {
	if len(w.Events) == 0 {
		return true
	}
	for _, e := range w.Events {
		if e == eventName {
			return true
		}
	}
	return false
}
