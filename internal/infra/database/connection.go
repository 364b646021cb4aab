package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

// NewDBConnection opens the Postgres pool and pings it.
func NewDBConnection(connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the tables used by the Postgres repositories.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS onboarding_sessions (
			sender_id         TEXT PRIMARY KEY,
			stage             TEXT NOT NULL,
			employment_status TEXT NOT NULL DEFAULT '',
			monthly_income    BIGINT NOT NULL DEFAULT 0,
			credit_score      BIGINT NOT NULL DEFAULT 0,
			language          TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_onboarding_sessions_updated ON onboarding_sessions(updated_at);

		-- Whole-number answers are Go ints; INTEGER would overflow on large scores.
		ALTER TABLE onboarding_sessions ALTER COLUMN credit_score TYPE BIGINT;
		ALTER TABLE onboarding_sessions ADD COLUMN IF NOT EXISTS language TEXT NOT NULL DEFAULT '';

		CREATE TABLE IF NOT EXISTS loan_leads (
			id                TEXT PRIMARY KEY,
			sender_id         TEXT NOT NULL,
			employment_status TEXT NOT NULL DEFAULT '',
			monthly_income    BIGINT NOT NULL,
			credit_score      BIGINT NOT NULL,
			eligible          BOOLEAN NOT NULL,
			language          TEXT,
			status            TEXT NOT NULL,
			decided_at        TIMESTAMPTZ NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_loan_leads_sender ON loan_leads(sender_id);
		ALTER TABLE loan_leads ALTER COLUMN credit_score TYPE BIGINT;
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
