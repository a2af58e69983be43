package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lmorrell/coldreach/internal/domain"
)

func (s *PostgresStore) CreateCampaign(ctx context.Context, req domain.CreateCampaignRequest) (*domain.Campaign, error) {
	var c domain.Campaign
	err := s.pool.QueryRow(ctx, `
		INSERT INTO campaigns (name, subject, email_content)
		VALUES ($1, $2, $3)
		RETURNING id, name, subject, email_content, status,
		          sent_count, opened_count, clicked_count, replied_count,
		          created_at, updated_at
	`, req.Name, req.Subject, req.EmailContent).Scan(
		&c.ID, &c.Name, &c.Subject, &c.EmailContent, &c.Status,
		&c.SentCount, &c.OpenedCount, &c.ClickedCount, &c.RepliedCount,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting campaign: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	var c domain.Campaign
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, subject, email_content, status,
		       sent_count, opened_count, clicked_count, replied_count,
		       created_at, updated_at
		FROM campaigns WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Name, &c.Subject, &c.EmailContent, &c.Status,
		&c.SentCount, &c.OpenedCount, &c.ClickedCount, &c.RepliedCount,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying campaign: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context, status string, limit int) ([]domain.Campaign, error) {
	query := `
		SELECT id, name, subject, email_content, status,
		       sent_count, opened_count, clicked_count, replied_count,
		       created_at, updated_at
		FROM campaigns`
	args := []interface{}{}
	argIdx := 1

	if status != "" {
		query += fmt.Sprintf(" WHERE status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		err := rows.Scan(
			&c.ID, &c.Name, &c.Subject, &c.EmailContent, &c.Status,
			&c.SentCount, &c.OpenedCount, &c.ClickedCount, &c.RepliedCount,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}

	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}

	return campaigns, nil
}

func (s *PostgresStore) UpdateCampaignStatus(ctx context.Context, id, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE campaigns SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("updating campaign status: %w", err)
	}
	return nil
}

// AttachLeads links leads to a campaign, ignoring pairs already attached.
func (s *PostgresStore) AttachLeads(ctx context.Context, campaignID string, leadIDs []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, leadID := range leadIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO campaign_leads (campaign_id, lead_id)
			VALUES ($1, $2)
			ON CONFLICT (campaign_id, lead_id) DO NOTHING
		`, campaignID, leadID)
		if err != nil {
			return fmt.Errorf("attaching lead %s: %w", leadID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListCampaignLeads returns every lead attached to the campaign.
func (s *PostgresStore) ListCampaignLeads(ctx context.Context, campaignID string) ([]domain.Lead, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT l.id, l.first_name, l.last_name, l.email, l.company, l.position,
		       l.status, l.created_at, l.updated_at
		FROM campaign_leads cl
		JOIN leads l ON l.id = cl.lead_id
		WHERE cl.campaign_id = $1
		ORDER BY l.created_at
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("querying campaign leads: %w", err)
	}
	defer rows.Close()

	return scanLeads(rows)
}

// ListUncontactedCampaignLeads returns attached leads that have no tracking
// record for the campaign yet. Used by send-to-new-leads.
func (s *PostgresStore) ListUncontactedCampaignLeads(ctx context.Context, campaignID string) ([]domain.Lead, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT l.id, l.first_name, l.last_name, l.email, l.company, l.position,
		       l.status, l.created_at, l.updated_at
		FROM campaign_leads cl
		JOIN leads l ON l.id = cl.lead_id
		WHERE cl.campaign_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM email_tracking t
			WHERE t.campaign_id = cl.campaign_id AND t.lead_id = cl.lead_id
		  )
		ORDER BY l.created_at
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("querying uncontacted campaign leads: %w", err)
	}
	defer rows.Close()

	return scanLeads(rows)
}

func scanLeads(rows pgx.Rows) ([]domain.Lead, error) {
	var leads []domain.Lead
	for rows.Next() {
		var lead domain.Lead
		err := rows.Scan(
			&lead.ID, &lead.FirstName, &lead.LastName, &lead.Email,
			&lead.Company, &lead.Position, &lead.Status, &lead.CreatedAt, &lead.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning lead: %w", err)
		}
		leads = append(leads, lead)
	}

	if leads == nil {
		leads = []domain.Lead{}
	}
	return leads, nil
}

// IncrementCampaignCounter adds n to one of the campaign's denormalized
// counters with a single atomic statement. The column must be one of the
// domain.Counter* names; anything else is rejected so the column name can be
// interpolated safely.
func (s *PostgresStore) IncrementCampaignCounter(ctx context.Context, campaignID, counter string, n int) error {
	switch counter {
	case domain.CounterSent, domain.CounterOpened, domain.CounterClicked, domain.CounterReplied:
	default:
		return fmt.Errorf("unknown campaign counter %q", counter)
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE campaigns SET %s = %s + $2, updated_at = NOW() WHERE id = $1
	`, counter, counter), campaignID, n)
	if err != nil {
		return fmt.Errorf("incrementing campaign %s: %w", counter, err)
	}
	return nil
}
