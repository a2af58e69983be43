package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lmorrell/coldreach/internal/engine"
	"github.com/lmorrell/coldreach/internal/mailer"
	"github.com/lmorrell/coldreach/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(pgStore *store.PostgresStore, pool *mailer.AccountPool, runner *engine.Runner, signals *engine.SignalMetrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// Handlers
	trackHandler := NewTrackHandler(pgStore, signals, logger)
	campaignHandler := NewCampaignHandler(pgStore, runner)
	leadHandler := NewLeadHandler(pgStore)
	accountHandler := NewAccountHandler(pool)
	metricsHandler := NewMetricsHandler(pgStore, signals)

	// Engagement endpoints hit by mail clients; kept outside the versioned
	// prefix because sent emails reference these paths forever.
	r.Route("/api/track", func(r chi.Router) {
		r.Get("/open", trackHandler.Open)
		r.Get("/click", trackHandler.Click)
		r.Get("/link", trackHandler.ClickLegacy)
		r.Post("/reply", trackHandler.Reply)
		r.Post("/bounce", trackHandler.Bounce)
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", campaignHandler.Create)
			r.Get("/", campaignHandler.List)
			r.Post("/preview", campaignHandler.Preview)
			r.Get("/{id}", campaignHandler.Get)
			r.Get("/{id}/leads", campaignHandler.Leads)
			r.Get("/{id}/tracking", campaignHandler.Tracking)
			r.Post("/{id}/leads", campaignHandler.AttachLeads)
			r.Post("/{id}/start", campaignHandler.Start)
			r.Post("/{id}/resend", campaignHandler.Resend)
			r.Post("/{id}/send-to-new-leads", campaignHandler.SendToNewLeads)
		})

		r.Route("/leads", func(r chi.Router) {
			r.Post("/", leadHandler.Create)
			r.Get("/", leadHandler.List)
			r.Get("/{id}", leadHandler.Get)
		})

		r.Get("/accounts/usage", accountHandler.Usage)
		r.Get("/metrics", metricsHandler.Metrics)
	})

	return r
}
