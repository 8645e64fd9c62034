package http

import (
	"net/http"

	"casa/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.deps.Categories.List(r.Context())
	if err != nil {
		writeError(w, r, "Failed to fetch categories", err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in core.Category
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, r, "Invalid category data", err)
		return
	}
	created, err := s.deps.Categories.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, "Failed to create category", err)
		return
	}
	s.invalidateAnalytics()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, "Invalid category id", err)
		return
	}
	var patch core.CategoryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		badRequest(w, r, "Invalid category data", err)
		return
	}
	updated, err := s.deps.Categories.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, "Failed to update category", err)
		return
	}
	s.invalidateAnalytics()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, "Invalid category id", err)
		return
	}
	if err := s.deps.Categories.Delete(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete category", err)
		return
	}
	s.invalidateAnalytics()
	w.WriteHeader(http.StatusNoContent)
}
