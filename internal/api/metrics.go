package api

import (
	"net/http"

	"github.com/lmorrell/coldreach/internal/engine"
	"github.com/lmorrell/coldreach/internal/store"
)

type MetricsHandler struct {
	store   *store.PostgresStore
	signals *engine.SignalMetrics
}

func NewMetricsHandler(s *store.PostgresStore, signals *engine.SignalMetrics) *MetricsHandler {
	return &MetricsHandler{store: s, signals: signals}
}

// Metrics returns aggregated engagement statistics plus the fresh/ignored
// signal counters.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.store.GetEngagementMetrics(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get metrics")
		return
	}

	// Signal counters are best-effort; metrics stay useful without them.
	signals, err := h.signals.Snapshot(r.Context())
	if err != nil {
		signals = &engine.SignalCounts{}
	}

	type metricsResponse struct {
		store.EngagementMetrics
		Signals *engine.SignalCounts `json:"signals"`
	}

	respondJSON(w, http.StatusOK, metricsResponse{
		EngagementMetrics: *metrics,
		Signals:           signals,
	})
}
