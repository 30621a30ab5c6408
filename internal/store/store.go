package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrConflict = errors.New("concurrent version conflict")

// Store is the data access interface. All database operations go through
// here. Entity reads and writes take an explicit Scope; the tenant-aware
// wrapper in scoped.go is the only caller that builds scopes implicitly.
type Store interface {
	Ping(ctx context.Context) error

	CreateTenant(ctx context.Context, t *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	DeleteTenant(ctx context.Context, id uuid.UUID) error

	CreateEntity(ctx context.Context, e *models.Entity) error
	GetEntity(ctx context.Context, entityType string, id uuid.UUID, scope Scope) (*models.Entity, error)
	QueryEntities(ctx context.Context, filter EntityFilter, scope Scope) ([]*models.Entity, int, error)
	UpdateEntity(ctx context.Context, e *models.Entity, scope Scope) error
	// DeleteEntity removes the entity and, in the same transaction, every
	// version snapshot keyed to it. The version table carries no foreign
	// key, so the cascade is enforced here.
	DeleteEntity(ctx context.Context, entityType string, id uuid.UUID, scope Scope) error

	// AppendVersion assigns the next version number for the target entity,
	// flips the previous current snapshot to is_current = false, and inserts
	// v with is_current = true, all atomically with respect to concurrent
	// appends for the same entity. v.VersionNumber is filled in on return.
	AppendVersion(ctx context.Context, v *models.Version) error
	ListVersions(ctx context.Context, entityType string, entityID uuid.UUID) ([]*models.Version, error)
	GetVersion(ctx context.Context, entityType string, entityID uuid.UUID, number int) (*models.Version, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error

	CreateWebhookEndpoint(ctx context.Context, w *models.WebhookEndpoint) error
	ListWebhookEndpoints(ctx context.Context, tenantID *uuid.UUID) ([]*models.WebhookEndpoint, error)
	DeleteWebhookEndpoint(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) error
}

// Scope restricts entity access to one tenant, or to nothing at all.
// The zero value is the unscoped escape hatch used by administrative
// cross-tenant queries and by system/CLI contexts where no tenant resolves.
type Scope struct {
	tenantID *uuid.UUID
}

// ScopeTenant returns a scope that matches only rows stamped with tenantID.
func ScopeTenant(tenantID uuid.UUID) Scope {
	return Scope{tenantID: &tenantID}
}

// Unscoped returns a scope that adds no tenant filter.
func Unscoped() Scope {
	return Scope{}
}

// TenantID returns the scoping tenant, or false for an unscoped scope.
func (s Scope) TenantID() (uuid.UUID, bool) {
	if s.tenantID == nil {
		return uuid.Nil, false
	}
	return *s.tenantID, true
}

// EntityFilter narrows a QueryEntities call. Zero-valued fields are ignored.
type EntityFilter struct {
	Type          string
	Slug          string
	PublishedOnly bool
	Page          int
	Limit         int
}
