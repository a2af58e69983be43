package domain

import (
	"time"
)

type Campaign struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Subject      string    `json:"subject"`
	EmailContent string    `json:"email_content"`
	Status       string    `json:"status"`
	SentCount    int       `json:"sent_count"`
	OpenedCount  int       `json:"opened_count"`
	ClickedCount int       `json:"clicked_count"`
	RepliedCount int       `json:"replied_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateCampaignRequest struct {
	Name         string `json:"name"`
	Subject      string `json:"subject"`
	EmailContent string `json:"email_content"`
}

// Denormalized campaign counters. These are the only columns
// IncrementCampaignCounter will touch.
const (
	CounterSent    = "sent_count"
	CounterOpened  = "opened_count"
	CounterClicked = "clicked_count"
	CounterReplied = "replied_count"
)
