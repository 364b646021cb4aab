package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xavierca1/loan-advisor/internal/entity"
)

type SessionRepository struct {
	DB *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Get(ctx context.Context, senderID string) (*entity.Session, error) {
	query := `
		SELECT sender_id, stage, employment_status, monthly_income, credit_score, language, created_at, updated_at
		FROM onboarding_sessions
		WHERE sender_id = $1
	`

	var s entity.Session
	var stage string

	err := r.DB.QueryRowContext(ctx, query, senderID).Scan(
		&s.SenderID,
		&stage,
		&s.EmploymentStatus,
		&s.MonthlyIncome,
		&s.CreditScore,
		&s.Language,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}

	s.Stage, err = entity.ParseStage(stage)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", senderID, err)
	}
	return &s, nil
}

func (r *SessionRepository) Put(ctx context.Context, s *entity.Session) error {
	query := `
		INSERT INTO onboarding_sessions (
			sender_id, stage, employment_status, monthly_income, credit_score, language, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (sender_id)
		DO UPDATE SET
			stage = EXCLUDED.stage,
			employment_status = EXCLUDED.employment_status,
			monthly_income = EXCLUDED.monthly_income,
			credit_score = EXCLUDED.credit_score,
			language = EXCLUDED.language,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.DB.ExecContext(ctx, query,
		s.SenderID,
		string(s.Stage),
		s.EmploymentStatus,
		s.MonthlyIncome,
		s.CreditScore,
		s.Language,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, senderID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM onboarding_sessions WHERE sender_id = $1`, senderID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) PurgeIdle(ctx context.Context, idleSince time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM onboarding_sessions WHERE updated_at < $1`, idleSince)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
