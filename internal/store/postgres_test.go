package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/internal/store"
	"github.com/hamzaawan7/blackcms/pkg/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("blackcms_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func createTenant(t *testing.T, s store.Store, slug string) *models.Tenant {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	tn := &models.Tenant{
		ID:        uuid.New(),
		Name:      slug,
		Slug:      slug,
		IsActive:  true,
		Settings:  map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateTenant(context.Background(), tn))
	return tn
}

func createPage(t *testing.T, s store.Store, tenantID *uuid.UUID, slug string) *models.Entity {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	e := &models.Entity{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Type:          "page",
		Attributes:    map[string]any{"title": slug},
		PublishStatus: models.PublishStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if slug != "" {
		e.Slug = &slug
	}
	require.NoError(t, s.CreateEntity(context.Background(), e))
	return e
}

// --- Tenant Tests ---

func TestPostgres_TenantRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	tn := createTenant(t, s, "acme")

	got, err := s.GetTenant(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Slug)
	assert.True(t, got.IsActive)

	bySlug, err := s.GetTenantBySlug(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, tn.ID, bySlug.ID)

	err = s.CreateTenant(ctx, &models.Tenant{
		ID: uuid.New(), Name: "Other", Slug: "acme",
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		Settings: map[string]any{},
	})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

// --- Entity Tests ---

func TestPostgres_EntityScopedAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	tenantA := createTenant(t, s, "tenant-a")
	tenantB := createTenant(t, s, "tenant-b")
	e := createPage(t, s, &tenantA.ID, "contact")

	got, err := s.GetEntity(ctx, "page", e.ID, store.ScopeTenant(tenantA.ID))
	require.NoError(t, err)
	require.NotNil(t, got.Slug)
	assert.Equal(t, "contact", *got.Slug)

	_, err = s.GetEntity(ctx, "page", e.ID, store.ScopeTenant(tenantB.ID))
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetEntity(ctx, "page", e.ID, store.Unscoped())
	assert.NoError(t, err)
}

func TestPostgres_SlugUniquePerTenant(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	tenantA := createTenant(t, s, "tenant-a")
	tenantB := createTenant(t, s, "tenant-b")

	createPage(t, s, &tenantA.ID, "contact")
	// Same slug under another tenant is allowed by the partial index.
	createPage(t, s, &tenantB.ID, "contact")

	now := time.Now().UTC()
	slug := "contact"
	err := s.CreateEntity(ctx, &models.Entity{
		ID: uuid.New(), TenantID: &tenantA.ID, Type: "page", Slug: &slug,
		Attributes: map[string]any{}, PublishStatus: models.PublishStatusDraft,
		CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestPostgres_QueryEntitiesFilters(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	tn := createTenant(t, s, "acme")
	createPage(t, s, &tn.ID, "one")
	published := createPage(t, s, &tn.ID, "two")
	published.IsPublished = true
	require.NoError(t, s.UpdateEntity(ctx, published, store.ScopeTenant(tn.ID)))

	items, total, err := s.QueryEntities(ctx, store.EntityFilter{Type: "page"}, store.ScopeTenant(tn.ID))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = s.QueryEntities(ctx,
		store.EntityFilter{Type: "page", PublishedOnly: true}, store.ScopeTenant(tn.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, published.ID, items[0].ID)

	_, total, err = s.QueryEntities(ctx,
		store.EntityFilter{Type: "page", Slug: "one"}, store.ScopeTenant(tn.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestPostgres_UpdateScopedNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	tenantA := createTenant(t, s, "tenant-a")
	tenantB := createTenant(t, s, "tenant-b")
	e := createPage(t, s, &tenantA.ID, "home")

	e.Attributes["title"] = "edited"
	err := s.UpdateEntity(ctx, e, store.ScopeTenant(tenantB.ID))
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.UpdateEntity(ctx, e, store.ScopeTenant(tenantA.ID)))
	got, err := s.GetEntity(ctx, "page", e.ID, store.ScopeTenant(tenantA.ID))
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Attributes["title"])
}

// --- Version Tests ---

func TestPostgres_AppendVersionSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	tn := createTenant(t, s, "acme")
	e := createPage(t, s, &tn.ID, "home")

	for i := 1; i <= 3; i++ {
		v := &models.Version{
			ID:         uuid.New(),
			EntityType: "page",
			EntityID:   e.ID,
			Snapshot:   map[string]any{"rev": i},
			CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, s.AppendVersion(ctx, v))
		assert.Equal(t, i, v.VersionNumber)
	}

	versions, err := s.ListVersions(ctx, "page", e.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 3, versions[0].VersionNumber)
	assert.True(t, versions[0].IsCurrent)
	assert.False(t, versions[1].IsCurrent)
	assert.False(t, versions[2].IsCurrent)
}

func TestPostgres_AppendVersionConcurrent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	tn := createTenant(t, s, "acme")
	e := createPage(t, s, &tn.ID, "home")

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := &models.Version{
				ID:         uuid.New(),
				EntityType: "page",
				EntityID:   e.ID,
				Snapshot:   map[string]any{},
				CreatedAt:  time.Now().UTC(),
			}
			// The row lock serializes appends; none should conflict.
			assert.NoError(t, s.AppendVersion(ctx, v))
		}()
	}
	wg.Wait()

	versions, err := s.ListVersions(ctx, "page", e.ID)
	require.NoError(t, err)
	require.Len(t, versions, writers)

	seen := map[int]bool{}
	var current int
	for _, v := range versions {
		assert.False(t, seen[v.VersionNumber])
		seen[v.VersionNumber] = true
		if v.IsCurrent {
			current++
		}
	}
	assert.Equal(t, 1, current)
	for n := 1; n <= writers; n++ {
		assert.True(t, seen[n], "missing version %d", n)
	}
}

func TestPostgres_AppendVersionMissingEntity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	err := s.AppendVersion(context.Background(), &models.Version{
		ID:         uuid.New(),
		EntityType: "page",
		EntityID:   uuid.New(),
		Snapshot:   map[string]any{},
		CreatedAt:  time.Now().UTC(),
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPostgres_DeleteEntityCascadesVersions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	tn := createTenant(t, s, "acme")
	e := createPage(t, s, &tn.ID, "home")
	require.NoError(t, s.AppendVersion(ctx, &models.Version{
		ID: uuid.New(), EntityType: "page", EntityID: e.ID,
		Snapshot: map[string]any{}, CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, s.DeleteEntity(ctx, "page", e.ID, store.ScopeTenant(tn.ID)))

	versions, err := s.ListVersions(ctx, "page", e.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestPostgres_DeleteTenantCascades(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	tn := createTenant(t, s, "acme")
	e := createPage(t, s, &tn.ID, "home")
	require.NoError(t, s.AppendVersion(ctx, &models.Version{
		ID: uuid.New(), EntityType: "page", EntityID: e.ID,
		Snapshot: map[string]any{}, CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, s.DeleteTenant(ctx, tn.ID))

	_, err := s.GetEntity(ctx, "page", e.ID, store.Unscoped())
	assert.ErrorIs(t, err, store.ErrNotFound)
	versions, err := s.ListVersions(ctx, "page", e.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

// --- API Key Tests ---

func TestPostgres_APIKeyLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	tn := createTenant(t, s, "acme")
	now := time.Now().UTC().Truncate(time.Microsecond)
	key := &models.APIKey{
		ID:        uuid.New(),
		TenantID:  &tn.ID,
		Name:      "test-key",
		Role:      "editor",
		KeyHash:   "bcrypt-hash-here",
		KeyPrefix: "bc_abcde",
		Scopes:    []string{"content"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateAPIKey(ctx, key))

	keys, err := s.GetAPIKeyByPrefix(ctx, "bc_abcde")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
	assert.Equal(t, []string{"content"}, keys[0].Scopes)

	require.NoError(t, s.RevokeAPIKey(ctx, key.ID, tn.ID))
	keys, err = s.GetAPIKeyByPrefix(ctx, "bc_abcde")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

// --- Webhook Endpoint Tests ---

func TestPostgres_WebhookEndpointsIncludePlatformWide(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	tn := createTenant(t, s, "acme")
	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, s.CreateWebhookEndpoint(ctx, &models.WebhookEndpoint{
		ID: uuid.New(), TenantID: &tn.ID, URL: "https://acme.example/hook",
		Secret: "s1", Events: []string{}, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, s.CreateWebhookEndpoint(ctx, &models.WebhookEndpoint{
		ID: uuid.New(), URL: "https://platform.example/hook",
		Secret: "s2", Events: []string{}, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}))

	hooks, err := s.ListWebhookEndpoints(ctx, &tn.ID)
	require.NoError(t, err)
	assert.Len(t, hooks, 2)

	// A nil tenant sees only platform-wide endpoints.
	hooks, err = s.ListWebhookEndpoints(ctx, nil)
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, "https://platform.example/hook", hooks[0].URL)
}
