package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/internal/api/response"
	"github.com/hamzaawan7/blackcms/internal/lifecycle"
)

// NewListVersionsHandler returns the handler for
// GET /api/v1/content/{type}/{id}/versions.
func NewListVersionsHandler(coord *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityType := chi.URLParam(r, "type")
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid entity id", nil)
			return
		}

		versions, err := coord.ListVersions(r.Context(), entityType, id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		response.JSON(w, versions)
	}
}

// NewDiffVersionsHandler returns the handler for
// GET /api/v1/content/{type}/{id}/versions/diff?from=N&to=M.
func NewDiffVersionsHandler(coord *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityType := chi.URLParam(r, "type")
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid entity id", nil)
			return
		}
		from, err := strconv.Atoi(r.URL.Query().Get("from"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "from must be a version number", nil)
			return
		}
		to, err := strconv.Atoi(r.URL.Query().Get("to"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "to must be a version number", nil)
			return
		}

		diff, err := coord.Diff(r.Context(), entityType, id, from, to)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		response.JSON(w, diff)
	}
}

// NewRestoreVersionHandler returns the handler for
// POST /api/v1/content/{type}/{id}/versions/{number}/restore.
func NewRestoreVersionHandler(coord *lifecycle.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityType := chi.URLParam(r, "type")
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid entity id", nil)
			return
		}
		number, err := strconv.Atoi(chi.URLParam(r, "number"))
		if err != nil || number < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid version number", nil)
			return
		}

		e, err := coord.Restore(r.Context(), entityType, id, number)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		response.JSON(w, e)
	}
}
