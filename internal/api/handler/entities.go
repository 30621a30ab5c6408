package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/internal/api/response"
	"github.com/hamzaawan7/blackcms/internal/cache"
	"github.com/hamzaawan7/blackcms/internal/lifecycle"
	"github.com/hamzaawan7/blackcms/internal/store"
)

const entityCacheTTL = 5 * time.Minute

// decodeEntityBody turns a request body into a write payload plus the
// optional audit reason. Slug distinguishes absent from explicit null, so a
// caller can clear a slug without clobbering it on unrelated updates.
func decodeEntityBody(r *http.Request) (store.EntityPayload, string, error) {
	var req struct {
		Slug          json.RawMessage `json:"slug"`
		Attributes    map[string]any  `json:"attributes"`
		IsPublished   *bool           `json:"is_published"`
		PublishStatus *string         `json:"publish_status"`
		Reason        string          `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return store.EntityPayload{}, "", err
	}

	var p store.EntityPayload
	p.Attributes = req.Attributes
	if req.Slug != nil {
		if string(req.Slug) == "null" {
			p.Slug = store.Null[string]()
		} else {
			var s string
			if err := json.Unmarshal(req.Slug, &s); err != nil {
				return store.EntityPayload{}, "", err
			}
			p.Slug = store.Set(s)
		}
	}
	if req.IsPublished != nil {
		p.IsPublished = store.Set(*req.IsPublished)
	}
	if req.PublishStatus != nil {
		p.PublishStatus = store.Set(*req.PublishStatus)
	}
	return p, req.Reason, nil
}

// NewCreateEntityHandler returns the handler for POST /api/v1/content/{type}.
func NewCreateEntityHandler(coord *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityType := chi.URLParam(r, "type")
		payload, reason, err := decodeEntityBody(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		e, err := coord.Mutate(r.Context(), entityType, nil, payload, reason)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		response.Created(w, e)
	}
}

// NewUpdateEntityHandler returns the handler for PUT /api/v1/content/{type}/{id}.
func NewUpdateEntityHandler(coord *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityType := chi.URLParam(r, "type")
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid entity id", nil)
			return
		}
		payload, reason, err := decodeEntityBody(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		e, err := coord.Mutate(r.Context(), entityType, &id, payload, reason)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		response.JSON(w, e)
	}
}

// NewGetEntityHandler returns the handler for GET /api/v1/content/{type}/{id}.
// Reads bypass versioning and events; they go straight through the scoped
// store, fronted by the cache the invalidation sink keeps honest.
func NewGetEntityHandler(entities *store.Scoped, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityType := chi.URLParam(r, "type")
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid entity id", nil)
			return
		}

		var tenantID *uuid.UUID
		if tid, ok := entities.Resolver().Resolve(r.Context()); ok {
			tenantID = &tid
		}
		key := cache.EntityKey(tenantID, entityType, id)
		if cached, ok, err := c.Get(r.Context(), key); err == nil && ok {
			response.JSON(w, json.RawMessage(cached))
			return
		}

		e, err := entities.Get(r.Context(), entityType, id)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		if body, err := json.Marshal(e); err == nil {
			c.Set(r.Context(), key, body, entityCacheTTL)
		}
		response.JSON(w, e)
	}
}

// NewListEntitiesHandler returns the handler for GET /api/v1/content/{type}.
func NewListEntitiesHandler(entities *store.Scoped) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.EntityFilter{
			Type:          chi.URLParam(r, "type"),
			Slug:          q.Get("slug"),
			PublishedOnly: q.Get("published") == "true",
		}
		filter.Page, _ = strconv.Atoi(q.Get("page"))
		filter.Limit, _ = strconv.Atoi(q.Get("limit"))

		items, total, err := entities.Query(r.Context(), filter)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		page := filter.Page
		if page <= 0 {
			page = 1
		}
		limit := filter.Limit
		if limit <= 0 {
			limit = 20
		}
		response.Collection(w, items, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

// NewDeleteEntityHandler returns the handler for DELETE /api/v1/content/{type}/{id}.
func NewDeleteEntityHandler(coord *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityType := chi.URLParam(r, "type")
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid entity id", nil)
			return
		}

		if err := coord.Remove(r.Context(), entityType, id); err != nil {
			writeStoreError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// writeStoreError maps store sentinel errors onto the API error envelope.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, store.ErrDuplicateKey):
		response.Error(w, http.StatusConflict, "DUPLICATE", "Resource already exists", nil)
	case errors.Is(err, store.ErrConflict):
		response.Error(w, http.StatusConflict, "CONFLICT", "Concurrent modification, retry", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Operation failed", nil)
	}
}
