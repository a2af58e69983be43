package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lmorrell/coldreach/internal/domain"
	"github.com/lmorrell/coldreach/internal/engine"
	"github.com/lmorrell/coldreach/internal/mailer"
	"github.com/lmorrell/coldreach/internal/store"
)

type CampaignHandler struct {
	store  *store.PostgresStore
	runner *engine.Runner
}

func NewCampaignHandler(s *store.PostgresStore, runner *engine.Runner) *CampaignHandler {
	return &CampaignHandler{store: s, runner: runner}
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Subject == "" && req.EmailContent == "" {
		respondError(w, http.StatusBadRequest, "subject or email_content is required")
		return
	}

	campaign, err := h.store.CreateCampaign(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}

	respondJSON(w, http.StatusCreated, campaign)
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := queryLimit(r, 50)

	campaigns, err := h.store.ListCampaigns(r.Context(), status, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}

	respondJSON(w, http.StatusOK, campaigns)
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := h.store.GetCampaign(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if campaign == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	stats, err := h.store.CampaignTrackingStats(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign stats")
		return
	}

	type campaignDetail struct {
		domain.Campaign
		Stats map[string]int `json:"stats"`
	}

	respondJSON(w, http.StatusOK, campaignDetail{
		Campaign: *campaign,
		Stats:    stats,
	})
}

type attachLeadsRequest struct {
	LeadIDs []string `json:"lead_ids"`
}

func (h *CampaignHandler) AttachLeads(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req attachLeadsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.LeadIDs) == 0 {
		respondError(w, http.StatusBadRequest, "lead_ids is required")
		return
	}

	campaign, err := h.store.GetCampaign(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if campaign == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	if err := h.store.AttachLeads(r.Context(), id, req.LeadIDs); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to attach leads")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id": id,
		"attached":    len(req.LeadIDs),
	})
}

func (h *CampaignHandler) Leads(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	leads, err := h.store.ListCampaignLeads(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list campaign leads")
		return
	}

	respondJSON(w, http.StatusOK, leads)
}

func (h *CampaignHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := queryLimit(r, 100)

	records, err := h.store.ListTracking(r.Context(), id, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list tracking records")
		return
	}

	respondJSON(w, http.StatusOK, records)
}

func (h *CampaignHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.runBatch(w, r, h.runner.Run)
}

func (h *CampaignHandler) Resend(w http.ResponseWriter, r *http.Request) {
	h.runBatch(w, r, h.runner.Resend)
}

func (h *CampaignHandler) SendToNewLeads(w http.ResponseWriter, r *http.Request) {
	h.runBatch(w, r, h.runner.RunNewLeads)
}

func (h *CampaignHandler) runBatch(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, campaignID string) (*engine.RunSummary, error)) {
	id := chi.URLParam(r, "id")

	campaign, err := h.store.GetCampaign(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if campaign == nil {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}

	summary, err := run(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to run campaign")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

type previewLead struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	Position  string `json:"position"`
}

// attributes returns the placeholder values for rendering, substituting a
// sample lead when none was supplied.
func (l previewLead) attributes() map[string]string {
	if l == (previewLead{}) {
		l = previewLead{
			FirstName: "Jamie",
			LastName:  "Rivera",
			Email:     "jamie@example.com",
			Company:   "Acme Corp",
			Position:  "Head of Growth",
		}
	}
	lead := domain.Lead{
		FirstName: l.FirstName,
		LastName:  l.LastName,
		Email:     l.Email,
		Company:   l.Company,
		Position:  l.Position,
	}
	return lead.Attributes()
}

type previewRequest struct {
	Subject      string      `json:"subject"`
	EmailContent string      `json:"email_content"`
	Lead         previewLead `json:"lead"`
}

// Preview renders a template against supplied or sample lead data and lists
// the links that would be rewritten for tracking.
func (h *CampaignHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subject == "" && req.EmailContent == "" {
		respondError(w, http.StatusBadRequest, "subject or email_content is required")
		return
	}

	attrs := req.Lead.attributes()

	type previewResponse struct {
		Subject string   `json:"subject"`
		HTML    string   `json:"html"`
		Links   []string `json:"links"`
	}

	html := mailer.RenderTemplate(req.EmailContent, attrs)
	respondJSON(w, http.StatusOK, previewResponse{
		Subject: mailer.RenderTemplate(req.Subject, attrs),
		HTML:    html,
		Links:   mailer.ExtractLinks(html),
	})
}

func queryLimit(r *http.Request, def int) int {
	limit := def
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	return limit
}
