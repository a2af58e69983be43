package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lmorrell/coldreach/internal/domain"
)

func (s *PostgresStore) CreateLead(ctx context.Context, req domain.CreateLeadRequest) (*domain.Lead, error) {
	var lead domain.Lead
	err := s.pool.QueryRow(ctx, `
		INSERT INTO leads (first_name, last_name, email, company, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, first_name, last_name, email, company, position, status, created_at, updated_at
	`, req.FirstName, req.LastName, req.Email, req.Company, req.Position).Scan(
		&lead.ID, &lead.FirstName, &lead.LastName, &lead.Email,
		&lead.Company, &lead.Position, &lead.Status, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting lead: %w", err)
	}
	return &lead, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	var lead domain.Lead
	err := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, company, position, status, created_at, updated_at
		FROM leads WHERE id = $1
	`, id).Scan(
		&lead.ID, &lead.FirstName, &lead.LastName, &lead.Email,
		&lead.Company, &lead.Position, &lead.Status, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying lead: %w", err)
	}
	return &lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, status string, limit int) ([]domain.Lead, error) {
	query := `SELECT id, first_name, last_name, email, company, position, status, created_at, updated_at FROM leads`
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
		return nil, fmt.Errorf("querying leads: %w", err)
	}
	defer rows.Close()

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

// UpdateLeadStatus moves a lead through its funnel labels (new, contacted,
// replied, ...).
func (s *PostgresStore) UpdateLeadStatus(ctx context.Context, id, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE leads SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("updating lead status: %w", err)
	}
	return nil
}
