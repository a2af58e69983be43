package domain

import (
	"time"
)

// TrackingRecord correlates one send attempt to the engagement signals that
// arrive for it. Each engagement timestamp is set at most once; the presence
// or absence of the timestamps is authoritative, the Status label is derived.
type TrackingRecord struct {
	ID             string     `json:"id"`
	CampaignID     string     `json:"campaign_id"`
	LeadID         string     `json:"lead_id"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	EmailType      string     `json:"email_type"`
	SenderEmail    *string    `json:"sender_email,omitempty"`
	SentAt         time.Time  `json:"sent_at"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	ClickedAt      *time.Time `json:"clicked_at,omitempty"`
	RepliedAt      *time.Time `json:"replied_at,omitempty"`
	BouncedAt      *time.Time `json:"bounced_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Status derives the display label from the engagement timestamps. Display
// priority only; the dimensions are independent.
func (t *TrackingRecord) Status() string {
	switch {
	case t.BouncedAt != nil:
		return "bounced"
	case t.RepliedAt != nil:
		return "replied"
	case t.ClickedAt != nil:
		return "clicked"
	case t.OpenedAt != nil:
		return "opened"
	default:
		return "sent"
	}
}

// LinkClick is one row of the append-only click log. Every redirect fetch is
// recorded here even though clicked_at on the tracking record is set once.
type LinkClick struct {
	ID          string    `json:"id"`
	TrackingID  string    `json:"tracking_id"`
	CampaignID  string    `json:"campaign_id,omitempty"`
	OriginalURL string    `json:"original_url"`
	UserAgent   string    `json:"user_agent,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	ClickedAt   time.Time `json:"clicked_at"`
}
