package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xavierca1/loan-advisor/internal/entity"
)

// SQLiteSessionRepository keeps sessions in an embedded database file so
// conversations survive restarts without a Postgres server.
type SQLiteSessionRepository struct {
	db *sql.DB
}

func NewSQLiteSessionRepository(dbPath string) (*SQLiteSessionRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer at a time avoids SQLITE_BUSY under concurrent turns.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteSessionRepository{db: db}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return repo, nil
}

func (r *SQLiteSessionRepository) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS onboarding_sessions (
		sender_id TEXT PRIMARY KEY,
		stage TEXT NOT NULL,
		employment_status TEXT NOT NULL DEFAULT '',
		monthly_income INTEGER NOT NULL DEFAULT 0,
		credit_score INTEGER NOT NULL DEFAULT 0,
		language TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_onboarding_sessions_updated ON onboarding_sessions(updated_at);
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	// Files created before the language column existed.
	var hasLanguage int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('onboarding_sessions') WHERE name = 'language'`).Scan(&hasLanguage)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if hasLanguage == 0 {
		if _, err := r.db.Exec(`ALTER TABLE onboarding_sessions ADD COLUMN language TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add language column: %w", err)
		}
	}
	return nil
}

func (r *SQLiteSessionRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteSessionRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteSessionRepository) Get(ctx context.Context, senderID string) (*entity.Session, error) {
	query := `
		SELECT sender_id, stage, employment_status, monthly_income, credit_score, language, created_at, updated_at
		FROM onboarding_sessions WHERE sender_id = ?`

	var s entity.Session
	var stage string
	var createdAt, updatedAt int64

	err := r.db.QueryRowContext(ctx, query, senderID).Scan(
		&s.SenderID, &stage, &s.EmploymentStatus,
		&s.MonthlyIncome, &s.CreditScore, &s.Language, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	s.Stage, err = entity.ParseStage(stage)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", senderID, err)
	}
	s.CreatedAt = time.UnixMilli(createdAt)
	s.UpdatedAt = time.UnixMilli(updatedAt)
	return &s, nil
}

func (r *SQLiteSessionRepository) Put(ctx context.Context, s *entity.Session) error {
	query := `
		INSERT INTO onboarding_sessions (
			sender_id, stage, employment_status, monthly_income, credit_score, language, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sender_id) DO UPDATE SET
			stage = excluded.stage,
			employment_status = excluded.employment_status,
			monthly_income = excluded.monthly_income,
			credit_score = excluded.credit_score,
			language = excluded.language,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		s.SenderID, string(s.Stage), s.EmploymentStatus,
		s.MonthlyIncome, s.CreditScore, s.Language,
		s.CreatedAt.UnixMilli(), s.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepository) Delete(ctx context.Context, senderID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM onboarding_sessions WHERE sender_id = ?`, senderID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepository) PurgeIdle(ctx context.Context, idleSince time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM onboarding_sessions WHERE updated_at < ?`, idleSince.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
