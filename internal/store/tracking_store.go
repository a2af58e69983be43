package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lmorrell/coldreach/internal/domain"
)

// CreateTrackingParams holds the data for a new tracking record. Engagement
// timestamps start null and are only ever set through the Mark* updates.
type CreateTrackingParams struct {
	CampaignID     string
	LeadID         string
	RecipientEmail string
	Subject        string
	EmailType      string
}

func (s *PostgresStore) CreateTracking(ctx context.Context, p CreateTrackingParams) (*domain.TrackingRecord, error) {
	if p.EmailType == "" {
		p.EmailType = "initial"
	}

	var rec domain.TrackingRecord
	err := s.pool.QueryRow(ctx, `
		INSERT INTO email_tracking (campaign_id, lead_id, recipient_email, subject, email_type, sent_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, campaign_id, lead_id, recipient_email, subject, email_type,
		          sender_email, sent_at, opened_at, clicked_at, replied_at, bounced_at, created_at
	`, p.CampaignID, p.LeadID, p.RecipientEmail, p.Subject, p.EmailType).Scan(
		&rec.ID, &rec.CampaignID, &rec.LeadID, &rec.RecipientEmail, &rec.Subject, &rec.EmailType,
		&rec.SenderEmail, &rec.SentAt, &rec.OpenedAt, &rec.ClickedAt, &rec.RepliedAt, &rec.BouncedAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting tracking record: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) GetTracking(ctx context.Context, id string) (*domain.TrackingRecord, error) {
	var rec domain.TrackingRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, campaign_id, lead_id, recipient_email, subject, email_type,
		       sender_email, sent_at, opened_at, clicked_at, replied_at, bounced_at, created_at
		FROM email_tracking WHERE id = $1
	`, id).Scan(
		&rec.ID, &rec.CampaignID, &rec.LeadID, &rec.RecipientEmail, &rec.Subject, &rec.EmailType,
		&rec.SenderEmail, &rec.SentAt, &rec.OpenedAt, &rec.ClickedAt, &rec.RepliedAt, &rec.BouncedAt, &rec.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying tracking record: %w", err)
	}
	return &rec, nil
}

// SetSenderEmail records which pool account transmitted the message, once the
// dispatcher reports success.
func (s *PostgresStore) SetSenderEmail(ctx context.Context, id, senderEmail string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE email_tracking SET sender_email = $2 WHERE id = $1
	`, id, senderEmail)
	if err != nil {
		return fmt.Errorf("recording sender email: %w", err)
	}
	return nil
}

// The Mark* updates are the guarded timestamp transitions: the condition
// lives in the WHERE clause so the null-to-set transition happens at most
// once even under concurrent duplicate signals. They return whether the
// update applied; false means the dimension was already set (or the id is
// unknown), which callers count as an ignored signal, not an error.

func (s *PostgresStore) MarkOpened(ctx context.Context, id string) (bool, error) {
	return s.markTimestamp(ctx, id, "opened_at")
}

func (s *PostgresStore) MarkClicked(ctx context.Context, id string) (bool, error) {
	return s.markTimestamp(ctx, id, "clicked_at")
}

func (s *PostgresStore) MarkReplied(ctx context.Context, id string) (bool, error) {
	return s.markTimestamp(ctx, id, "replied_at")
}

func (s *PostgresStore) MarkBounced(ctx context.Context, id string) (bool, error) {
	return s.markTimestamp(ctx, id, "bounced_at")
}

func (s *PostgresStore) markTimestamp(ctx context.Context, id, column string) (bool, error) {
	switch column {
	case "opened_at", "clicked_at", "replied_at", "bounced_at":
	default:
		return false, fmt.Errorf("unknown tracking timestamp %q", column)
	}

	result, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE email_tracking SET %s = NOW() WHERE id = $1 AND %s IS NULL
	`, column, column), id)
	if err != nil {
		return false, fmt.Errorf("setting %s: %w", column, err)
	}
	return result.RowsAffected() > 0, nil
}

// InsertLinkClick appends one row to the click log. Unconditional: every
// redirect fetch is recorded even when clicked_at was set long ago.
func (s *PostgresStore) InsertLinkClick(ctx context.Context, click domain.LinkClick) error {
	var campaignID interface{}
	if click.CampaignID != "" {
		campaignID = click.CampaignID
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO link_clicks (tracking_id, campaign_id, original_url, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5)
	`, click.TrackingID, campaignID, click.OriginalURL, click.UserAgent, click.IPAddress)
	if err != nil {
		return fmt.Errorf("inserting link click: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTracking(ctx context.Context, campaignID string, limit int) ([]domain.TrackingRecord, error) {
	query := `
		SELECT id, campaign_id, lead_id, recipient_email, subject, email_type,
		       sender_email, sent_at, opened_at, clicked_at, replied_at, bounced_at, created_at
		FROM email_tracking`
	args := []interface{}{}
	argIdx := 1

	if campaignID != "" {
		query += fmt.Sprintf(" WHERE campaign_id = $%d", argIdx)
		args = append(args, campaignID)
		argIdx++
	}

	query += " ORDER BY sent_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tracking records: %w", err)
	}
	defer rows.Close()

	var records []domain.TrackingRecord
	for rows.Next() {
		var rec domain.TrackingRecord
		err := rows.Scan(
			&rec.ID, &rec.CampaignID, &rec.LeadID, &rec.RecipientEmail, &rec.Subject, &rec.EmailType,
			&rec.SenderEmail, &rec.SentAt, &rec.OpenedAt, &rec.ClickedAt, &rec.RepliedAt, &rec.BouncedAt, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning tracking record: %w", err)
		}
		records = append(records, rec)
	}

	if records == nil {
		records = []domain.TrackingRecord{}
	}

	return records, nil
}

// CampaignTrackingStats counts tracking records per derived engagement state
// for one campaign.
func (s *PostgresStore) CampaignTrackingStats(ctx context.Context, campaignID string) (map[string]int, error) {
	stats := map[string]int{
		"total": 0, "sent": 0, "opened": 0, "clicked": 0, "replied": 0, "bounced": 0,
	}

	rows, err := s.pool.Query(ctx, `
		SELECT
			CASE
				WHEN bounced_at IS NOT NULL THEN 'bounced'
				WHEN replied_at IS NOT NULL THEN 'replied'
				WHEN clicked_at IS NOT NULL THEN 'clicked'
				WHEN opened_at IS NOT NULL THEN 'opened'
				ELSE 'sent'
			END AS state,
			COUNT(*)
		FROM email_tracking
		WHERE campaign_id = $1
		GROUP BY state
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("querying tracking stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scanning tracking stats: %w", err)
		}
		stats[state] = count
		stats["total"] += count
	}

	return stats, nil
}
