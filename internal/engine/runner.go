package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lmorrell/coldreach/internal/domain"
	"github.com/lmorrell/coldreach/internal/mailer"
	"github.com/lmorrell/coldreach/internal/store"
)

// PersistenceError marks a write that failed after the email was already
// transmitted. The most dangerous failure in the pipeline: the message is out
// but not recorded, so it is surfaced distinctly for reconciliation instead
// of being folded into a generic send failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure after send (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CampaignStore is the slice of the store the runner reads campaigns and
// leads through.
type CampaignStore interface {
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)
	ListCampaignLeads(ctx context.Context, campaignID string) ([]domain.Lead, error)
	ListUncontactedCampaignLeads(ctx context.Context, campaignID string) ([]domain.Lead, error)
	UpdateCampaignStatus(ctx context.Context, id, status string) error
	IncrementCampaignCounter(ctx context.Context, campaignID, counter string, n int) error
	UpdateLeadStatus(ctx context.Context, id, status string) error
}

// TrackingStore is the slice of the store the runner creates tracking
// records through.
type TrackingStore interface {
	CreateTracking(ctx context.Context, p store.CreateTrackingParams) (*domain.TrackingRecord, error)
	SetSenderEmail(ctx context.Context, id, senderEmail string) error
}

// Sender is satisfied by *mailer.Dispatcher.
type Sender interface {
	Send(ctx context.Context, req mailer.SendRequest) (*mailer.SendResult, error)
}

// RunSummary aggregates the per-recipient outcomes of one campaign batch.
type RunSummary struct {
	CampaignID          string `json:"campaign_id"`
	Total               int    `json:"total"`
	Sent                int    `json:"sent"`
	Failed              int    `json:"failed"`
	PersistenceFailures int    `json:"persistence_failures"`
	Message             string `json:"message"`
}

// Runner drives campaign batches through the dispatcher: one tracking record
// and one send per lead, with a small worker pool for light parallelism.
// Per-recipient failures never abort the batch; each lead's outcome is
// independent and the summary reports the aggregate.
type Runner struct {
	campaigns CampaignStore
	tracking  TrackingStore
	sender    Sender
	logger    *slog.Logger
	workers   int
}

func NewRunner(campaigns CampaignStore, tracking TrackingStore, sender Sender, workers int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		campaigns: campaigns,
		tracking:  tracking,
		sender:    sender,
		logger:    logger,
		workers:   workers,
	}
}

// Run sends the campaign to every attached lead.
func (r *Runner) Run(ctx context.Context, campaignID string) (*RunSummary, error) {
	return r.run(ctx, campaignID, "initial", false)
}

// Resend sends the campaign again to every attached lead, under fresh
// tracking records.
func (r *Runner) Resend(ctx context.Context, campaignID string) (*RunSummary, error) {
	return r.run(ctx, campaignID, "resend", false)
}

// RunNewLeads sends only to attached leads that have never received this
// campaign.
func (r *Runner) RunNewLeads(ctx context.Context, campaignID string) (*RunSummary, error) {
	return r.run(ctx, campaignID, "initial", true)
}

func (r *Runner) run(ctx context.Context, campaignID, emailType string, onlyNew bool) (*RunSummary, error) {
	campaign, err := r.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("loading campaign: %w", err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign %s not found", campaignID)
	}

	var leads []domain.Lead
	if onlyNew {
		leads, err = r.campaigns.ListUncontactedCampaignLeads(ctx, campaignID)
	} else {
		leads, err = r.campaigns.ListCampaignLeads(ctx, campaignID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading campaign leads: %w", err)
	}

	summary := &RunSummary{CampaignID: campaignID, Total: len(leads)}
	if len(leads) == 0 {
		summary.Message = summaryMessage(summary)
		return summary, nil
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan domain.Lead)
	)

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for lead := range jobs {
				sent, persistFailed := r.sendOne(ctx, campaign, lead, emailType)
				mu.Lock()
				if sent {
					summary.Sent++
				} else {
					summary.Failed++
				}
				if persistFailed {
					summary.PersistenceFailures++
				}
				mu.Unlock()
			}
		}()
	}

	for _, lead := range leads {
		jobs <- lead
	}
	close(jobs)
	wg.Wait()

	if summary.Sent > 0 {
		if err := r.campaigns.IncrementCampaignCounter(ctx, campaignID, domain.CounterSent, summary.Sent); err != nil {
			r.logger.Error("failed to advance campaign sent count",
				"error", err, "campaign_id", campaignID, "sent", summary.Sent)
			summary.PersistenceFailures++
		}
	}

	if err := r.campaigns.UpdateCampaignStatus(ctx, campaignID, "active"); err != nil {
		r.logger.Error("failed to update campaign status", "error", err, "campaign_id", campaignID)
	}

	summary.Message = summaryMessage(summary)
	r.logger.Info("campaign batch finished",
		"campaign_id", campaignID,
		"total", summary.Total,
		"sent", summary.Sent,
		"failed", summary.Failed,
		"persistence_failures", summary.PersistenceFailures,
	)
	return summary, nil
}

// sendOne processes a single recipient: tracking record, dispatch, sender
// bookkeeping. Returns whether the email was transmitted and whether a write
// failed after transmission.
func (r *Runner) sendOne(ctx context.Context, campaign *domain.Campaign, lead domain.Lead, emailType string) (sent, persistFailed bool) {
	if !domain.ValidEmail(lead.Email) {
		r.logger.Warn("skipping lead with invalid address", "lead_id", lead.ID, "email", lead.Email)
		return false, false
	}

	rec, err := r.tracking.CreateTracking(ctx, store.CreateTrackingParams{
		CampaignID:     campaign.ID,
		LeadID:         lead.ID,
		RecipientEmail: lead.Email,
		Subject:        campaign.Subject,
		EmailType:      emailType,
	})
	if err != nil {
		// Nothing was transmitted yet; an untracked send is worse than a
		// skipped one.
		r.logger.Error("failed to create tracking record",
			"error", err, "campaign_id", campaign.ID, "lead_id", lead.ID)
		return false, false
	}

	result, err := r.sender.Send(ctx, mailer.SendRequest{
		To:         lead.Email,
		Subject:    campaign.Subject,
		HTML:       campaign.EmailContent,
		TrackingID: rec.ID,
		Attributes: lead.Attributes(),
	})
	if err != nil {
		switch {
		case errors.Is(err, mailer.ErrPoolExhausted):
			r.logger.Warn("send skipped, pool exhausted", "lead_id", lead.ID)
		default:
			r.logger.Warn("send failed", "error", err, "lead_id", lead.ID, "email", lead.Email)
		}
		return false, false
	}

	if err := r.tracking.SetSenderEmail(ctx, rec.ID, result.AccountUsed); err != nil {
		perr := &PersistenceError{Op: "record sender email", Err: err}
		r.logger.Error(perr.Error(), "tracking_id", rec.ID, "account", result.AccountUsed)
		persistFailed = true
	}

	if err := r.campaigns.UpdateLeadStatus(ctx, lead.ID, "contacted"); err != nil {
		perr := &PersistenceError{Op: "update lead status", Err: err}
		r.logger.Error(perr.Error(), "lead_id", lead.ID)
		persistFailed = true
	}

	return true, persistFailed
}

func summaryMessage(s *RunSummary) string {
	return fmt.Sprintf("sent to %d of %d recipients, %d failed", s.Sent, s.Total, s.Failed)
}
