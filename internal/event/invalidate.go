package event

import (
	"context"
	"fmt"

	"github.com/hamzaawan7/blackcms/internal/cache"
)

// InvalidationSink drops cached renditions of the entity an event touched.
// The synthetic cache.invalidate event flushes the whole tenant (or the
// entity type, when one is named).
type InvalidationSink struct {
	cache cache.Cache
}

// NewInvalidationSink creates a cache-invalidation sink.
func NewInvalidationSink(c cache.Cache) *InvalidationSink {
	return &InvalidationSink{cache: c}
}

func (s *InvalidationSink) Name() string { return "cache_invalidation" }

func (s *InvalidationSink) Deliver(ctx context.Context, evt Event) error {
	if evt.Name == CacheInvalidateName {
		pattern := cache.TenantPattern(evt.TenantID)
		if evt.EntityType != "" {
			pattern = cache.EntityPattern(evt.TenantID, evt.EntityType)
		}
		if _, err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
			return fmt.Errorf("flush %s: %w", pattern, err)
		}
		return nil
	}

	if err := s.cache.Delete(ctx, cache.EntityKey(evt.TenantID, evt.EntityType, evt.EntityID)); err != nil {
		return fmt.Errorf("invalidate entity: %w", err)
	}
	// Listing pages cache per type; a mutation to any entity of the type
	// invalidates them too.
	if _, err := s.cache.DeleteByPattern(ctx, cache.EntityPattern(evt.TenantID, evt.EntityType)); err != nil {
		return fmt.Errorf("invalidate listings: %w", err)
	}
	// Unscoped reads cache the same entity under the system segment; that
	// copy must not outlive the mutation either.
	if evt.TenantID != nil {
		if err := s.cache.Delete(ctx, cache.EntityKey(nil, evt.EntityType, evt.EntityID)); err != nil {
			return fmt.Errorf("invalidate system copy: %w", err)
		}
	}
	return nil
}
