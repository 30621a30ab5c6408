package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/internal/api/response"
	"github.com/hamzaawan7/blackcms/internal/lifecycle"
	"github.com/hamzaawan7/blackcms/internal/store"
	"github.com/hamzaawan7/blackcms/internal/tenant"
)

// NewCreateTenantHandler returns the handler for POST /api/v1/admin/tenants.
func NewCreateTenantHandler(coord *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string         `json:"name"`
			Slug     string         `json:"slug"`
			Settings map[string]any `json:"settings"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Name == "" || req.Slug == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name and slug are required", nil)
			return
		}

		t, err := coord.CreateTenant(r.Context(), req.Name, req.Slug, req.Settings)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		response.Created(w, t)
	}
}

// NewListTenantsHandler returns the handler for GET /api/v1/admin/tenants.
func NewListTenantsHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenants, err := s.ListTenants(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		response.JSON(w, tenants)
	}
}

// NewDeleteTenantHandler returns the handler for DELETE /api/v1/admin/tenants/{id}.
func NewDeleteTenantHandler(coord *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid tenant id", nil)
			return
		}
		if err := coord.DeleteTenant(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// NewSwitchTenantHandler returns the handler for POST /api/v1/admin/tenant-switch.
// The override is stored against the caller's session and outranks the
// principal's own tenant until reset.
func NewSwitchTenantHandler(coord *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := tenant.PrincipalFrom(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing principal", nil)
			return
		}

		var req struct {
			TenantID string `json:"tenant_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		tenantID, err := uuid.Parse(req.TenantID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "tenant_id must be a UUID", nil)
			return
		}

		if err := coord.SwitchTenant(r.Context(), p.SessionID, tenantID); err != nil {
			writeStoreError(w, err)
			return
		}
		response.JSON(w, map[string]any{"active_tenant": tenantID})
	}
}

// NewResetTenantHandler returns the handler for DELETE /api/v1/admin/tenant-switch.
func NewResetTenantHandler(coord *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := tenant.PrincipalFrom(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing principal", nil)
			return
		}
		if err := coord.ResetTenant(r.Context(), p.SessionID); err != nil {
			writeStoreError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// NewInvalidateCacheHandler returns the handler for POST /api/v1/admin/cache/invalidate.
// It triggers the synthetic cache.invalidate event out-of-band of any CRUD
// mutation.
func NewInvalidateCacheHandler(coord *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			EntityType string `json:"entity_type"`
		}
		// Body is optional; an empty one flushes everything for the tenant.
		json.NewDecoder(r.Body).Decode(&req)

		coord.Invalidate(r.Context(), req.EntityType)
		response.Accepted(w, map[string]any{"status": "queued"})
	}
}
