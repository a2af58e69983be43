package store

import (
	"context"
	"fmt"
)

// EngagementMetrics holds aggregated outreach statistics.
type EngagementMetrics struct {
	TotalSent    int     `json:"total_sent"`
	TotalOpened  int     `json:"total_opened"`
	TotalClicked int     `json:"total_clicked"`
	TotalReplied int     `json:"total_replied"`
	TotalBounced int     `json:"total_bounced"`
	OpenRate     float64 `json:"open_rate"`
	ReplyRate    float64 `json:"reply_rate"`
	LinkClicks   int     `json:"link_clicks"`
	TotalLeads   int     `json:"total_leads"`
	Campaigns    int     `json:"campaigns"`
}

// GetEngagementMetrics returns aggregated engagement statistics from the
// database.
func (s *PostgresStore) GetEngagementMetrics(ctx context.Context) (*EngagementMetrics, error) {
	var m EngagementMetrics

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS sent,
			COUNT(opened_at) AS opened,
			COUNT(clicked_at) AS clicked,
			COUNT(replied_at) AS replied,
			COUNT(bounced_at) AS bounced
		FROM email_tracking
	`).Scan(&m.TotalSent, &m.TotalOpened, &m.TotalClicked, &m.TotalReplied, &m.TotalBounced)
	if err != nil {
		return nil, fmt.Errorf("querying engagement metrics: %w", err)
	}

	if m.TotalSent > 0 {
		m.OpenRate = float64(m.TotalOpened) / float64(m.TotalSent) * 100
		m.ReplyRate = float64(m.TotalReplied) / float64(m.TotalSent) * 100
	}

	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM link_clicks`).Scan(&m.LinkClicks)
	if err != nil {
		return nil, fmt.Errorf("querying link click count: %w", err)
	}

	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&m.TotalLeads)
	if err != nil {
		return nil, fmt.Errorf("querying lead count: %w", err)
	}

	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&m.Campaigns)
	if err != nil {
		return nil, fmt.Errorf("querying campaign count: %w", err)
	}

	return &m, nil
}
