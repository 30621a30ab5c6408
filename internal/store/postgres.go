package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Tenants ---

func (s *PostgresStore) CreateTenant(ctx context.Context, t *models.Tenant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, slug, is_active, settings, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Name, t.Slug, t.IsActive, t.Settings, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.scanTenant(ctx,
		`SELECT id, name, slug, is_active, settings, created_at, updated_at
		 FROM tenants WHERE id = $1`, id)
}

func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return s.scanTenant(ctx,
		`SELECT id, name, slug, is_active, settings, created_at, updated_at
		 FROM tenants WHERE slug = $1`, slug)
}

func (s *PostgresStore) scanTenant(ctx context.Context, query string, arg any) (*models.Tenant, error) {
	var t models.Tenant
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.Settings, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, slug, is_active, settings, created_at, updated_at
		 FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.Settings,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}

// DeleteTenant removes the tenant, its entities (FK cascade) and their
// version snapshots (no FK, deleted here) in one transaction.
func (s *PostgresStore) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete tenant: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM entity_versions v USING entities e
		 WHERE v.entity_type = e.entity_type AND v.entity_id = e.id AND e.tenant_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant versions: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// --- Entities ---

const entityColumns = `id, tenant_id, entity_type, slug, attributes, is_published, publish_status, created_at, updated_at`

func (s *PostgresStore) CreateEntity(ctx context.Context, e *models.Entity) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO entities (id, tenant_id, entity_type, slug, attributes, is_published, publish_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.TenantID, e.Type, e.Slug, e.Attributes, e.IsPublished, e.PublishStatus,
		e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create entity: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEntity(ctx context.Context, entityType string, id uuid.UUID, scope Scope) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE entity_type = $1 AND id = $2`
	args := []any{entityType, id}
	if tid, ok := scope.TenantID(); ok {
		query += ` AND tenant_id = $3`
		args = append(args, tid)
	}

	var e models.Entity
	err := s.pool.QueryRow(ctx, query, args...).Scan(&e.ID, &e.TenantID, &e.Type, &e.Slug,
		&e.Attributes, &e.IsPublished, &e.PublishStatus, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) QueryEntities(ctx context.Context, filter EntityFilter, scope Scope) ([]*models.Entity, int, error) {
	conditions := []string{"entity_type = $1"}
	args := []any{filter.Type}
	argIdx := 2

	if tid, ok := scope.TenantID(); ok {
		conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", argIdx))
		args = append(args, tid)
		argIdx++
	}
	if filter.Slug != "" {
		conditions = append(conditions, fmt.Sprintf("slug = $%d", argIdx))
		args = append(args, filter.Slug)
		argIdx++
	}
	if filter.PublishedOnly {
		conditions = append(conditions, "(is_published OR publish_status = 'published')")
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM entities WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}

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

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM entities WHERE %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`,
		entityColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.Entity
	for rows.Next() {
		var e models.Entity
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Type, &e.Slug, &e.Attributes,
			&e.IsPublished, &e.PublishStatus, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, &e)
	}
	return entities, total, rows.Err()
}

// UpdateEntity writes the mutable columns. tenant_id is set once at creation
// and is deliberately absent from the SET list. A row outside the scope
// behaves exactly like a missing row.
func (s *PostgresStore) UpdateEntity(ctx context.Context, e *models.Entity, scope Scope) error {
	query := `UPDATE entities
		 SET slug = $3, attributes = $4, is_published = $5, publish_status = $6, updated_at = $7
		 WHERE entity_type = $1 AND id = $2`
	args := []any{e.Type, e.ID, e.Slug, e.Attributes, e.IsPublished, e.PublishStatus, e.UpdatedAt}
	if tid, ok := scope.TenantID(); ok {
		query += ` AND tenant_id = $8`
		args = append(args, tid)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteEntity(ctx context.Context, entityType string, id uuid.UUID, scope Scope) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete entity: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `DELETE FROM entities WHERE entity_type = $1 AND id = $2`
	args := []any{entityType, id}
	if tid, ok := scope.TenantID(); ok {
		query += ` AND tenant_id = $3`
		args = append(args, tid)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM entity_versions WHERE entity_type = $1 AND entity_id = $2`, entityType, id)
	if err != nil {
		return fmt.Errorf("delete entity versions: %w", err)
	}
	return tx.Commit(ctx)
}

// --- Versions ---

// AppendVersion serializes per entity by locking the entity row, so the
// read-then-increment on version_number cannot race. Appends to different
// entities proceed in parallel.
func (s *PostgresStore) AppendVersion(ctx context.Context, v *models.Version) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("append version: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var entityID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM entities WHERE entity_type = $1 AND id = $2 FOR UPDATE`,
		v.EntityType, v.EntityID).Scan(&entityID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("append version: lock entity: %w", err)
	}

	var next int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM entity_versions
		 WHERE entity_type = $1 AND entity_id = $2`, v.EntityType, v.EntityID).Scan(&next)
	if err != nil {
		return fmt.Errorf("append version: next number: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE entity_versions SET is_current = FALSE
		 WHERE entity_type = $1 AND entity_id = $2 AND is_current`, v.EntityType, v.EntityID)
	if err != nil {
		return fmt.Errorf("append version: flip current: %w", err)
	}

	v.VersionNumber = next
	v.IsCurrent = true
	_, err = tx.Exec(ctx,
		`INSERT INTO entity_versions (id, entity_type, entity_id, version_number, snapshot, is_current, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)`,
		v.ID, v.EntityType, v.EntityID, v.VersionNumber, v.Snapshot, v.Reason, v.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("append version: insert: %w", err)
	}
	return tx.Commit(ctx)
}

const versionColumns = `id, entity_type, entity_id, version_number, snapshot, is_current, reason, created_at`

func (s *PostgresStore) ListVersions(ctx context.Context, entityType string, entityID uuid.UUID) ([]*models.Version, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+versionColumns+` FROM entity_versions
		 WHERE entity_type = $1 AND entity_id = $2 ORDER BY version_number DESC`,
		entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.Version
	for rows.Next() {
		var v models.Version
		if err := rows.Scan(&v.ID, &v.EntityType, &v.EntityID, &v.VersionNumber,
			&v.Snapshot, &v.IsCurrent, &v.Reason, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, &v)
	}
	return versions, rows.Err()
}

func (s *PostgresStore) GetVersion(ctx context.Context, entityType string, entityID uuid.UUID, number int) (*models.Version, error) {
	var v models.Version
	err := s.pool.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM entity_versions
		 WHERE entity_type = $1 AND entity_id = $2 AND version_number = $3`,
		entityType, entityID, number,
	).Scan(&v.ID, &v.EntityType, &v.EntityID, &v.VersionNumber,
		&v.Snapshot, &v.IsCurrent, &v.Reason, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return &v, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, name, role, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.TenantID, &k.Name, &k.Role, &k.KeyHash, &k.KeyPrefix,
			&k.Scopes, &k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, tenant_id, name, role, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		key.ID, key.TenantID, key.Name, key.Role, key.KeyHash, key.KeyPrefix, key.Scopes,
		key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, name, role, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE tenant_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.TenantID, &k.Name, &k.Role, &k.KeyHash, &k.KeyPrefix,
			&k.Scopes, &k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`, id, tenantID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Webhook endpoints ---

func (s *PostgresStore) CreateWebhookEndpoint(ctx context.Context, w *models.WebhookEndpoint) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO webhook_endpoints (id, tenant_id, url, secret, events, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		w.ID, w.TenantID, w.URL, w.Secret, w.Events, w.IsActive, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create webhook endpoint: %w", err)
	}
	return nil
}

// ListWebhookEndpoints returns active endpoints for the given tenant plus
// platform-wide endpoints (NULL tenant). A nil tenantID returns only the
// platform-wide ones.
func (s *PostgresStore) ListWebhookEndpoints(ctx context.Context, tenantID *uuid.UUID) ([]*models.WebhookEndpoint, error) {
	query := `SELECT id, tenant_id, url, secret, events, is_active, created_at, updated_at
		 FROM webhook_endpoints WHERE is_active AND tenant_id IS NULL`
	args := []any{}
	if tenantID != nil {
		query = `SELECT id, tenant_id, url, secret, events, is_active, created_at, updated_at
		 FROM webhook_endpoints WHERE is_active AND (tenant_id IS NULL OR tenant_id = $1)`
		args = append(args, *tenantID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list webhook endpoints: %w", err)
	}
	defer rows.Close()

	var hooks []*models.WebhookEndpoint
	for rows.Next() {
		var w models.WebhookEndpoint
		if err := rows.Scan(&w.ID, &w.TenantID, &w.URL, &w.Secret, &w.Events,
			&w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook endpoint: %w", err)
		}
		hooks = append(hooks, &w)
	}
	return hooks, rows.Err()
}

func (s *PostgresStore) DeleteWebhookEndpoint(ctx context.Context, id uuid.UUID, tenantID *uuid.UUID) error {
	query := `DELETE FROM webhook_endpoints WHERE id = $1`
	args := []any{id}
	if tenantID != nil {
		query += ` AND tenant_id = $2`
		args = append(args, *tenantID)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete webhook endpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
