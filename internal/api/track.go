package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lmorrell/coldreach/internal/domain"
	"github.com/lmorrell/coldreach/internal/engine"
)

// trackingPixel is a 1x1 transparent PNG. Decoded once at startup.
var trackingPixel, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

// defaultRedirect is where a click lands when the rewritten link carried no
// destination.
const defaultRedirect = "https://example.com"

// TrackStore is the slice of the store the engagement endpoints write
// through.
type TrackStore interface {
	GetTracking(ctx context.Context, id string) (*domain.TrackingRecord, error)
	MarkOpened(ctx context.Context, id string) (bool, error)
	MarkClicked(ctx context.Context, id string) (bool, error)
	MarkReplied(ctx context.Context, id string) (bool, error)
	MarkBounced(ctx context.Context, id string) (bool, error)
	InsertLinkClick(ctx context.Context, click domain.LinkClick) error
	IncrementCampaignCounter(ctx context.Context, campaignID, counter string, n int) error
}

// TrackHandler records engagement signals from mail clients. Open and click
// arrive as plain GETs from email clients and proxies, so those endpoints
// never return an error status: the beacon always serves its pixel and the
// redirect always redirects, whatever the bookkeeping outcome.
type TrackHandler struct {
	store   TrackStore
	signals *engine.SignalMetrics
	logger  *slog.Logger
}

func NewTrackHandler(s TrackStore, signals *engine.SignalMetrics, logger *slog.Logger) *TrackHandler {
	return &TrackHandler{store: s, signals: signals, logger: logger}
}

// Open serves the beacon. The opened_at transition is guarded at the storage
// boundary; only the first open advances the campaign counter.
func (h *TrackHandler) Open(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackingID := r.URL.Query().Get("id")

	if trackingID != "" {
		rec, err := h.store.GetTracking(ctx, trackingID)
		switch {
		case err != nil:
			h.logger.Error("open signal lookup failed", "error", err, "tracking_id", trackingID)
		case rec == nil:
			h.logger.Warn("open signal for unknown tracking id", "tracking_id", trackingID)
		default:
			applied, err := h.store.MarkOpened(ctx, trackingID)
			if err != nil {
				h.logger.Error("failed to mark opened", "error", err, "tracking_id", trackingID)
			} else {
				h.recordSignal(ctx, engine.SignalOpen, applied)
				if applied && rec.CampaignID != "" {
					if err := h.store.IncrementCampaignCounter(ctx, rec.CampaignID, domain.CounterOpened, 1); err != nil {
						h.logger.Error("failed to advance opened count", "error", err, "campaign_id", rec.CampaignID)
					}
				}
			}
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(trackingPixel)
}

// Click logs the click and redirects. Every click lands in the click log and
// bumps the campaign counter; clicked_at on the tracking record is set only
// once.
func (h *TrackHandler) Click(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.handleClick(w, r, q.Get("id"), q.Get("url"), "")
}

// ClickLegacy accepts the older parameter spellings still baked into
// previously sent emails (tracking_id, url, campaign_id).
func (h *TrackHandler) ClickLegacy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.handleClick(w, r, q.Get("tracking_id"), q.Get("url"), q.Get("campaign_id"))
}

func (h *TrackHandler) handleClick(w http.ResponseWriter, r *http.Request, trackingID, destination, campaignID string) {
	ctx := r.Context()
	if destination == "" {
		destination = defaultRedirect
	}

	if trackingID != "" {
		rec, err := h.store.GetTracking(ctx, trackingID)
		switch {
		case err != nil:
			h.logger.Error("click signal lookup failed", "error", err, "tracking_id", trackingID)
		case rec == nil:
			h.logger.Warn("click signal for unknown tracking id", "tracking_id", trackingID)
		default:
			if campaignID == "" {
				campaignID = rec.CampaignID
			}

			if err := h.store.InsertLinkClick(ctx, domain.LinkClick{
				TrackingID:  trackingID,
				CampaignID:  campaignID,
				OriginalURL: destination,
				UserAgent:   r.UserAgent(),
				IPAddress:   r.RemoteAddr,
			}); err != nil {
				h.logger.Error("failed to log click", "error", err, "tracking_id", trackingID)
			}

			applied, err := h.store.MarkClicked(ctx, trackingID)
			if err != nil {
				h.logger.Error("failed to mark clicked", "error", err, "tracking_id", trackingID)
			} else {
				h.recordSignal(ctx, engine.SignalClick, applied)
			}

			if campaignID != "" {
				if err := h.store.IncrementCampaignCounter(ctx, campaignID, domain.CounterClicked, 1); err != nil {
					h.logger.Error("failed to advance clicked count", "error", err, "campaign_id", campaignID)
				}
			}
		}
	}

	http.Redirect(w, r, destination, http.StatusFound)
}

type signalRequest struct {
	TrackingID string `json:"tracking_id"`
}

// Reply marks a reply reported by an operator or an inbox integration.
func (h *TrackHandler) Reply(w http.ResponseWriter, r *http.Request) {
	h.markSignal(w, r, engine.SignalReply, h.store.MarkReplied, domain.CounterReplied)
}

// Bounce marks a delivery failure reported out of band.
func (h *TrackHandler) Bounce(w http.ResponseWriter, r *http.Request) {
	h.markSignal(w, r, engine.SignalBounce, h.store.MarkBounced, "")
}

func (h *TrackHandler) markSignal(w http.ResponseWriter, r *http.Request, signal string, mark func(context.Context, string) (bool, error), counter string) {
	ctx := r.Context()

	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TrackingID == "" {
		respondError(w, http.StatusBadRequest, "tracking_id is required")
		return
	}

	rec, err := h.store.GetTracking(ctx, req.TrackingID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load tracking record")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "tracking record not found")
		return
	}

	applied, err := mark(ctx, req.TrackingID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to record signal")
		return
	}
	h.recordSignal(ctx, signal, applied)

	if applied && counter != "" && rec.CampaignID != "" {
		if err := h.store.IncrementCampaignCounter(ctx, rec.CampaignID, counter, 1); err != nil {
			h.logger.Error("failed to advance campaign counter",
				"error", err, "campaign_id", rec.CampaignID, "counter", counter)
		}
	}

	status := "recorded"
	if !applied {
		status = "already_recorded"
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":      status,
		"tracking_id": req.TrackingID,
	})
}

func (h *TrackHandler) recordSignal(ctx context.Context, signal string, fresh bool) {
	if h.signals != nil {
		h.signals.Record(ctx, signal, fresh)
	}
}
