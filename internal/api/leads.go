package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lmorrell/coldreach/internal/domain"
	"github.com/lmorrell/coldreach/internal/store"
)

type LeadHandler struct {
	store *store.PostgresStore
}

func NewLeadHandler(s *store.PostgresStore) *LeadHandler {
	return &LeadHandler{store: s}
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}
	if !domain.ValidEmail(req.Email) {
		respondError(w, http.StatusBadRequest, "email is not a valid address")
		return
	}

	lead, err := h.store.CreateLead(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create lead")
		return
	}

	respondJSON(w, http.StatusCreated, lead)
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := queryLimit(r, 50)

	leads, err := h.store.ListLeads(r.Context(), status, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	respondJSON(w, http.StatusOK, leads)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lead, err := h.store.GetLead(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get lead")
		return
	}
	if lead == nil {
		respondError(w, http.StatusNotFound, "lead not found")
		return
	}

	respondJSON(w, http.StatusOK, lead)
}
