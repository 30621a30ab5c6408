package store

import (
	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/pkg/models"
)

// EntityPayload is the write half of a mutation. Attributes merge key-wise
// into the entity's existing attribute map; a key mapped to nil removes it.
// The typed columns use three-state fields so "not sent" and "clear it"
// stay distinguishable.
type EntityPayload struct {
	TenantID      Field[uuid.UUID]
	Slug          Field[string]
	Attributes    map[string]any
	IsPublished   Field[bool]
	PublishStatus Field[string]
}

// ApplyTo merges the payload into e.
func (p EntityPayload) ApplyTo(e *models.Entity) {
	if id, ok := p.TenantID.Value(); ok {
		e.TenantID = &id
	}
	if p.Slug.IsNull() {
		e.Slug = nil
	} else if s, ok := p.Slug.Value(); ok {
		e.Slug = &s
	}
	if e.Attributes == nil {
		e.Attributes = map[string]any{}
	}
	for k, v := range p.Attributes {
		if v == nil {
			delete(e.Attributes, k)
			continue
		}
		e.Attributes[k] = v
	}
	if b, ok := p.IsPublished.Value(); ok {
		e.IsPublished = b
	}
	if s, ok := p.PublishStatus.Value(); ok {
		e.PublishStatus = s
	}
}
