// Package version snapshots entity state into immutable, numbered versions
// and answers diff and restore queries over them.
package version

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/internal/store"
	"github.com/hamzaawan7/blackcms/pkg/models"
)

// maxAppendRetries bounds the internal retry on a version-number race before
// the conflict surfaces to the caller.
const maxAppendRetries = 3

// Engine decides whether a mutation warrants a snapshot and persists it.
type Engine struct {
	store store.Store
	// significant maps entity type to the attribute keys whose change
	// justifies a new version. Types without an entry version on every
	// mutation. Populated at wiring time, read-only afterwards.
	significant map[string][]string
}

// NewEngine creates a versioning engine over the raw store.
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s, significant: map[string][]string{}}
}

// DeclareSignificantFields registers the allow-list for an entity type.
// Call during wiring only; the map is not guarded for concurrent writes.
func (e *Engine) DeclareSignificantFields(entityType string, fields ...string) {
	e.significant[entityType] = fields
}

// MaybeSnapshot persists a new version of the entity if warranted.
// changedFields nil means "creation": the snapshot is taken unconditionally
// with a default reason. For updates the snapshot is skipped when the entity
// type declares an allow-list and none of the changed fields intersect it.
// Returns (nil, nil) when no version was warranted or versioning is
// suppressed for this context.
func (e *Engine) MaybeSnapshot(ctx context.Context, entity *models.Entity, changedFields []string, reason string) (*models.Version, error) {
	if Suppressed(ctx) {
		return nil, nil
	}

	if changedFields == nil {
		if reason == "" {
			reason = models.DefaultInitialReason
		}
	} else if !e.warranted(entity.Type, changedFields) {
		return nil, nil
	}

	v := &models.Version{
		ID:         uuid.New(),
		EntityType: entity.Type,
		EntityID:   entity.ID,
		Snapshot:   entity.SnapshotAttrs(),
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	if reason != "" {
		v.Reason = &reason
	}

	var err error
	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		err = e.store.AppendVersion(ctx, v)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot %s %s: %w", entity.Type, entity.ID, err)
	}
	return v, nil
}

func (e *Engine) warranted(entityType string, changedFields []string) bool {
	allow, ok := e.significant[entityType]
	if !ok || len(allow) == 0 {
		return true
	}
	for _, f := range changedFields {
		for _, a := range allow {
			if f == a {
				return true
			}
		}
	}
	return false
}

// List returns the entity's versions, newest first.
func (e *Engine) List(ctx context.Context, entityType string, entityID uuid.UUID) ([]*models.Version, error) {
	return e.store.ListVersions(ctx, entityType, entityID)
}

// Get returns one version by number, or store.ErrNotFound.
func (e *Engine) Get(ctx context.Context, entityType string, entityID uuid.UUID, number int) (*models.Version, error) {
	return e.store.GetVersion(ctx, entityType, entityID, number)
}

// DiffVersions compares two stored snapshots of the entity. Either version
// missing yields an empty diff, not an error; callers are expected to have
// validated existence already.
func (e *Engine) DiffVersions(ctx context.Context, entityType string, entityID uuid.UUID, from, to int) (Diff, error) {
	fromV, err := e.store.GetVersion(ctx, entityType, entityID, from)
	if errors.Is(err, store.ErrNotFound) {
		return Diff{}, nil
	}
	if err != nil {
		return nil, err
	}
	toV, err := e.store.GetVersion(ctx, entityType, entityID, to)
	if errors.Is(err, store.ErrNotFound) {
		return Diff{}, nil
	}
	if err != nil {
		return nil, err
	}
	return Compare(fromV.Snapshot, toV.Snapshot), nil
}
