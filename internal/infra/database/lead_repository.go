package database

import (
	"context"
	"database/sql"

	"github.com/xavierca1/loan-advisor/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

// Upsert is keyed by the lead event id so redelivered messages do not
// duplicate leads.
func (r *LeadRepository) Upsert(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO loan_leads (
			id, sender_id, employment_status, monthly_income, credit_score,
			eligible, language, status, decided_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (id)
		DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	return r.DB.QueryRowContext(
		ctx,
		query,
		lead.ID,
		lead.SenderID,
		lead.EmploymentStatus,
		lead.MonthlyIncome,
		lead.CreditScore,
		lead.Eligible,
		nullString(lead.Language),
		lead.Status,
		lead.DecidedAt,
	).Scan(
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
