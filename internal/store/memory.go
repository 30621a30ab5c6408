package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/pkg/models"
)

type entityKey struct {
	entityType string
	id         uuid.UUID
}

// MemoryStore is an in-memory Store used by unit tests and local tooling.
// A single mutex guards all maps; version appends therefore get the same
// per-entity serialization the Postgres row lock provides.
type MemoryStore struct {
	mu       sync.Mutex
	tenants  map[uuid.UUID]*models.Tenant
	entities map[entityKey]*models.Entity
	versions map[entityKey][]*models.Version
	apiKeys  map[uuid.UUID]*models.APIKey
	webhooks map[uuid.UUID]*models.WebhookEndpoint
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:  map[uuid.UUID]*models.Tenant{},
		entities: map[entityKey]*models.Entity{},
		versions: map[entityKey][]*models.Version{},
		apiKeys:  map[uuid.UUID]*models.APIKey{},
		webhooks: map[uuid.UUID]*models.WebhookEndpoint{},
	}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// --- Tenants ---

func (s *MemoryStore) CreateTenant(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; ok {
		return ErrDuplicateKey
	}
	for _, existing := range s.tenants {
		if existing.Slug == t.Slug {
			return ErrDuplicateKey
		}
	}
	dup := *t
	s.tenants[t.ID] = &dup
	return nil
}

func (s *MemoryStore) GetTenant(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	dup := *t
	return &dup, nil
}

func (s *MemoryStore) GetTenantBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tenants {
		if t.Slug == slug {
			dup := *t
			return &dup, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListTenants(_ context.Context) ([]*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		dup := *t
		out = append(out, &dup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteTenant(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[id]; !ok {
		return ErrNotFound
	}
	delete(s.tenants, id)
	for key, e := range s.entities {
		if e.TenantID != nil && *e.TenantID == id {
			delete(s.entities, key)
			delete(s.versions, key)
		}
	}
	return nil
}

// --- Entities ---

func (s *MemoryStore) CreateEntity(_ context.Context, e *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entityKey{e.Type, e.ID}
	if _, ok := s.entities[key]; ok {
		return ErrDuplicateKey
	}
	if e.Slug != nil {
		for _, existing := range s.entities {
			if existing.Type == e.Type && existing.Slug != nil && *existing.Slug == *e.Slug &&
				sameTenant(existing.TenantID, e.TenantID) {
				return ErrDuplicateKey
			}
		}
	}
	s.entities[key] = e.Clone()
	return nil
}

func (s *MemoryStore) GetEntity(_ context.Context, entityType string, id uuid.UUID, scope Scope) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[entityKey{entityType, id}]
	if !ok || !inScope(e, scope) {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

func (s *MemoryStore) QueryEntities(_ context.Context, filter EntityFilter, scope Scope) ([]*models.Entity, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Entity
	for _, e := range s.entities {
		if e.Type != filter.Type || !inScope(e, scope) {
			continue
		}
		if filter.Slug != "" && (e.Slug == nil || *e.Slug != filter.Slug) {
			continue
		}
		if filter.PublishedOnly && !e.Published() {
			continue
		}
		matched = append(matched, e.Clone())
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedAt.After(matched[j].UpdatedAt) })

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *MemoryStore) UpdateEntity(_ context.Context, e *models.Entity, scope Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entityKey{e.Type, e.ID}
	existing, ok := s.entities[key]
	if !ok || !inScope(existing, scope) {
		return ErrNotFound
	}
	dup := e.Clone()
	dup.TenantID = existing.TenantID // immutable after first write
	s.entities[key] = dup
	return nil
}

func (s *MemoryStore) DeleteEntity(_ context.Context, entityType string, id uuid.UUID, scope Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entityKey{entityType, id}
	existing, ok := s.entities[key]
	if !ok || !inScope(existing, scope) {
		return ErrNotFound
	}
	delete(s.entities, key)
	delete(s.versions, key)
	return nil
}

// --- Versions ---

func (s *MemoryStore) AppendVersion(_ context.Context, v *models.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entityKey{v.EntityType, v.EntityID}
	if _, ok := s.entities[key]; !ok {
		return ErrNotFound
	}
	existing := s.versions[key]
	next := 1
	for _, old := range existing {
		if old.VersionNumber >= next {
			next = old.VersionNumber + 1
		}
		old.IsCurrent = false
	}
	v.VersionNumber = next
	v.IsCurrent = true
	dup := *v
	s.versions[key] = append(existing, &dup)
	return nil
}

func (s *MemoryStore) ListVersions(_ context.Context, entityType string, entityID uuid.UUID) ([]*models.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.versions[entityKey{entityType, entityID}]
	out := make([]*models.Version, 0, len(stored))
	for _, v := range stored {
		dup := *v
		out = append(out, &dup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (s *MemoryStore) GetVersion(_ context.Context, entityType string, entityID uuid.UUID, number int) (*models.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions[entityKey{entityType, entityID}] {
		if v.VersionNumber == number {
			dup := *v
			return &dup, nil
		}
	}
	return nil, ErrNotFound
}

// --- API Keys ---

func (s *MemoryStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []*models.APIKey
	for _, k := range s.apiKeys {
		if k.KeyPrefix == prefix && k.DeletedAt == nil {
			dup := *k
			keys = append(keys, &dup)
		}
	}
	return keys, nil
}

func (s *MemoryStore) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.apiKeys[id]; ok {
		t := time.Now().UTC()
		k.LastUsedAt = &t
	}
	return nil
}

func (s *MemoryStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apiKeys[key.ID]; ok {
		return ErrDuplicateKey
	}
	dup := *key
	s.apiKeys[key.ID] = &dup
	return nil
}

func (s *MemoryStore) ListAPIKeys(_ context.Context, tenantID uuid.UUID) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []*models.APIKey
	for _, k := range s.apiKeys {
		if k.TenantID != nil && *k.TenantID == tenantID && k.DeletedAt == nil {
			dup := *k
			keys = append(keys, &dup)
		}
	}
	return keys, nil
}

func (s *MemoryStore) RevokeAPIKey(_ context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.apiKeys[id]
	if !ok || k.DeletedAt != nil || k.TenantID == nil || *k.TenantID != tenantID {
		return ErrNotFound
	}
	t := time.Now().UTC()
	k.DeletedAt = &t
	return nil
}

// --- Webhook endpoints ---

func (s *MemoryStore) CreateWebhookEndpoint(_ context.Context, w *models.WebhookEndpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *w
	s.webhooks[w.ID] = &dup
	return nil
}

func (s *MemoryStore) ListWebhookEndpoints(_ context.Context, tenantID *uuid.UUID) ([]*models.WebhookEndpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var hooks []*models.WebhookEndpoint
	for _, w := range s.webhooks {
		if !w.IsActive {
			continue
		}
		if w.TenantID == nil || (tenantID != nil && *w.TenantID == *tenantID) {
			dup := *w
			hooks = append(hooks, &dup)
		}
	}
	return hooks, nil
}

func (s *MemoryStore) DeleteWebhookEndpoint(_ context.Context, id uuid.UUID, tenantID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.webhooks[id]
	if !ok {
		return ErrNotFound
	}
	if tenantID != nil && !sameTenant(w.TenantID, tenantID) {
		return ErrNotFound
	}
	delete(s.webhooks, id)
	return nil
}

func inScope(e *models.Entity, scope Scope) bool {
	tid, ok := scope.TenantID()
	if !ok {
		return true
	}
	return e.TenantID != nil && *e.TenantID == tid
}

func sameTenant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
