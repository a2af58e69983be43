package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/lmorrell/coldreach/internal/domain"
	"github.com/lmorrell/coldreach/internal/mailer"
	"github.com/lmorrell/coldreach/internal/store"
)

type fakeStore struct {
	mu sync.Mutex

	campaign *domain.Campaign
	leads    []domain.Lead
	newLeads []domain.Lead

	tracking     map[string]*domain.TrackingRecord
	senderEmails map[string]string
	leadStatuses map[string]string
	counters     map[string]int
	status       string

	createTrackingErr error
	setSenderErr      error
}

func newFakeStore(campaign *domain.Campaign, leads []domain.Lead) *fakeStore {
	return &fakeStore{
		campaign:     campaign,
		leads:        leads,
		tracking:     map[string]*domain.TrackingRecord{},
		senderEmails: map[string]string{},
		leadStatuses: map[string]string{},
		counters:     map[string]int{},
	}
}

func (f *fakeStore) GetCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	if f.campaign != nil && f.campaign.ID == id {
		return f.campaign, nil
	}
	return nil, nil
}

func (f *fakeStore) ListCampaignLeads(_ context.Context, _ string) ([]domain.Lead, error) {
	return f.leads, nil
}

func (f *fakeStore) ListUncontactedCampaignLeads(_ context.Context, _ string) ([]domain.Lead, error) {
	return f.newLeads, nil
}

func (f *fakeStore) UpdateCampaignStatus(_ context.Context, _, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	return nil
}

func (f *fakeStore) IncrementCampaignCounter(_ context.Context, _, counter string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[counter] += n
	return nil
}

func (f *fakeStore) UpdateLeadStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leadStatuses[id] = status
	return nil
}

func (f *fakeStore) CreateTracking(_ context.Context, p store.CreateTrackingParams) (*domain.TrackingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createTrackingErr != nil {
		return nil, f.createTrackingErr
	}
	rec := &domain.TrackingRecord{
		ID:             fmt.Sprintf("trk-%d", len(f.tracking)+1),
		CampaignID:     p.CampaignID,
		LeadID:         p.LeadID,
		RecipientEmail: p.RecipientEmail,
		Subject:        p.Subject,
		EmailType:      p.EmailType,
		SentAt:         time.Now(),
	}
	f.tracking[rec.ID] = rec
	return rec, nil
}

func (f *fakeStore) SetSenderEmail(_ context.Context, id, senderEmail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setSenderErr != nil {
		return f.setSenderErr
	}
	f.senderEmails[id] = senderEmail
	return nil
}

// fakeSender fails for recipients listed in failFor.
type fakeSender struct {
	mu      sync.Mutex
	sent    []mailer.SendRequest
	failFor map[string]error
}

func (f *fakeSender) Send(_ context.Context, req mailer.SendRequest) (*mailer.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[req.To]; ok {
		return nil, err
	}
	f.sent = append(f.sent, req)
	return &mailer.SendResult{MessageID: "m-1", AccountUsed: "a@x.com", AccountUsage: "1/10"}, nil
}

func runnerLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testCampaign() *domain.Campaign {
	return &domain.Campaign{
		ID:           "camp-1",
		Name:         "Intro",
		Subject:      "Hi {{first_name}}",
		EmailContent: "<body>Hello {{first_name}}</body>",
		Status:       "draft",
	}
}

func testLeads(n int) []domain.Lead {
	leads := make([]domain.Lead, 0, n)
	for i := 0; i < n; i++ {
		leads = append(leads, domain.Lead{
			ID:        fmt.Sprintf("lead-%d", i+1),
			FirstName: "Ann",
			Email:     fmt.Sprintf("lead%d@dest.com", i+1),
		})
	}
	return leads
}

func TestRunner_AllRecipientsSent(t *testing.T) {
	fs := newFakeStore(testCampaign(), testLeads(3))
	sender := &fakeSender{}
	r := NewRunner(fs, fs, sender, 2, runnerLogger())

	summary, err := r.Run(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Total != 3 || summary.Sent != 3 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Message != "sent to 3 of 3 recipients, 0 failed" {
		t.Errorf("message = %q", summary.Message)
	}
	if fs.counters[domain.CounterSent] != 3 {
		t.Errorf("sent counter = %d, want 3", fs.counters[domain.CounterSent])
	}
	if fs.status != "active" {
		t.Errorf("campaign status = %q, want active", fs.status)
	}
	if len(fs.tracking) != 3 {
		t.Errorf("expected 3 tracking records, got %d", len(fs.tracking))
	}
	for id := range fs.tracking {
		if fs.senderEmails[id] != "a@x.com" {
			t.Errorf("sender email not recorded for %s", id)
		}
	}
	for _, lead := range testLeads(3) {
		if fs.leadStatuses[lead.ID] != "contacted" {
			t.Errorf("lead %s status = %q, want contacted", lead.ID, fs.leadStatuses[lead.ID])
		}
	}
}

func TestRunner_EachSendCarriesItsOwnTrackingID(t *testing.T) {
	fs := newFakeStore(testCampaign(), testLeads(2))
	sender := &fakeSender{}
	r := NewRunner(fs, fs, sender, 1, runnerLogger())

	if _, err := r.Run(context.Background(), "camp-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := map[string]bool{}
	for _, req := range sender.sent {
		if req.TrackingID == "" {
			t.Error("send request without tracking id")
		}
		if seen[req.TrackingID] {
			t.Errorf("tracking id %s reused", req.TrackingID)
		}
		seen[req.TrackingID] = true
		if _, ok := fs.tracking[req.TrackingID]; !ok {
			t.Errorf("tracking id %s has no record", req.TrackingID)
		}
	}
}

func TestRunner_PerRecipientFailureIsolated(t *testing.T) {
	fs := newFakeStore(testCampaign(), testLeads(3))
	sender := &fakeSender{failFor: map[string]error{
		"lead2@dest.com": &mailer.TransmissionError{Account: "a@x.com", Err: errors.New("550")},
	}}
	r := NewRunner(fs, fs, sender, 1, runnerLogger())

	summary, err := r.Run(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Sent != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Message != "sent to 2 of 3 recipients, 1 failed" {
		t.Errorf("message = %q", summary.Message)
	}
	if fs.counters[domain.CounterSent] != 2 {
		t.Errorf("sent counter = %d, want 2", fs.counters[domain.CounterSent])
	}
}

func TestRunner_PoolExhaustionCountsAsFailure(t *testing.T) {
	fs := newFakeStore(testCampaign(), testLeads(2))
	sender := &fakeSender{failFor: map[string]error{
		"lead1@dest.com": mailer.ErrPoolExhausted,
		"lead2@dest.com": mailer.ErrPoolExhausted,
	}}
	r := NewRunner(fs, fs, sender, 1, runnerLogger())

	summary, err := r.Run(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Sent != 0 || summary.Failed != 2 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunner_InvalidAddressSkippedWithoutSend(t *testing.T) {
	leads := testLeads(1)
	leads = append(leads, domain.Lead{ID: "bad", Email: "not-an-address"})
	fs := newFakeStore(testCampaign(), leads)
	sender := &fakeSender{}
	r := NewRunner(fs, fs, sender, 1, runnerLogger())

	summary, err := r.Run(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Sent != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(fs.tracking) != 1 {
		t.Errorf("no tracking record should exist for the invalid lead, got %d", len(fs.tracking))
	}
}

func TestRunner_PersistenceFailureAfterSendSurfaced(t *testing.T) {
	fs := newFakeStore(testCampaign(), testLeads(1))
	fs.setSenderErr = errors.New("connection reset")
	sender := &fakeSender{}
	r := NewRunner(fs, fs, sender, 1, runnerLogger())

	summary, err := r.Run(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The email went out: it counts as sent AND as a persistence failure.
	if summary.Sent != 1 {
		t.Errorf("sent = %d, want 1", summary.Sent)
	}
	if summary.PersistenceFailures == 0 {
		t.Error("persistence failure after send must be surfaced in the summary")
	}
}

func TestRunner_NewLeadsOnly(t *testing.T) {
	fs := newFakeStore(testCampaign(), testLeads(3))
	fs.newLeads = testLeads(3)[2:]
	sender := &fakeSender{}
	r := NewRunner(fs, fs, sender, 1, runnerLogger())

	summary, err := r.RunNewLeads(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("RunNewLeads: %v", err)
	}
	if summary.Total != 1 || summary.Sent != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if sender.sent[0].To != "lead3@dest.com" {
		t.Errorf("sent to %q, want the uncontacted lead", sender.sent[0].To)
	}
}

func TestRunner_ResendUsesResendEmailType(t *testing.T) {
	fs := newFakeStore(testCampaign(), testLeads(1))
	sender := &fakeSender{}
	r := NewRunner(fs, fs, sender, 1, runnerLogger())

	if _, err := r.Resend(context.Background(), "camp-1"); err != nil {
		t.Fatalf("Resend: %v", err)
	}
	for _, rec := range fs.tracking {
		if rec.EmailType != "resend" {
			t.Errorf("email type = %q, want resend", rec.EmailType)
		}
	}
}

func TestRunner_UnknownCampaign(t *testing.T) {
	fs := newFakeStore(testCampaign(), nil)
	r := NewRunner(fs, fs, &fakeSender{}, 1, runnerLogger())

	if _, err := r.Run(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown campaign")
	}
}

func TestRunner_EmptyCampaign(t *testing.T) {
	fs := newFakeStore(testCampaign(), nil)
	r := NewRunner(fs, fs, &fakeSender{}, 4, runnerLogger())

	summary, err := r.Run(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Total != 0 || summary.Message != "sent to 0 of 0 recipients, 0 failed" {
		t.Fatalf("summary = %+v", summary)
	}
}
