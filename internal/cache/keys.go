package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// tenantSegment renders a nullable tenant id into a key segment.
func tenantSegment(tenantID *uuid.UUID) string {
	if tenantID == nil {
		return "system"
	}
	return tenantID.String()
}

// EntityKey caches one rendered entity.
func EntityKey(tenantID *uuid.UUID, entityType string, id uuid.UUID) string {
	return fmt.Sprintf("content:%s:%s:%s", tenantSegment(tenantID), entityType, id)
}

// EntityPattern matches every cached entity of a type for a tenant.
func EntityPattern(tenantID *uuid.UUID, entityType string) string {
	return fmt.Sprintf("content:%s:%s:*", tenantSegment(tenantID), entityType)
}

// TenantPattern matches all cached content for a tenant.
func TenantPattern(tenantID *uuid.UUID) string {
	return fmt.Sprintf("content:%s:*", tenantSegment(tenantID))
}

// OverrideKey stores an operator's tenant-switch override per session.
func OverrideKey(sessionID string) string {
	return fmt.Sprintf("tenant:override:%s", sessionID)
}

// RateLimitKey tracks the per-key request counter.
func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
