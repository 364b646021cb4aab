package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/loan-advisor/internal/entity"
)

func newTestSQLite(t *testing.T) *SQLiteSessionRepository {
	t.Helper()
	repo, err := NewSQLiteSessionRepository(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	_, err := repo.Get(ctx, "whatsapp:+919800000001")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)

	s := entity.NewSession("whatsapp:+919800000001")
	s.Stage = entity.StageAwaitingCredit
	s.EmploymentStatus = "self-employed"
	s.MonthlyIncome = 25000
	require.NoError(t, repo.Put(ctx, s))

	got, err := repo.Get(ctx, s.SenderID)
	require.NoError(t, err)
	assert.Equal(t, entity.StageAwaitingCredit, got.Stage)
	assert.Equal(t, "self-employed", got.EmploymentStatus)
	assert.Equal(t, 25000, got.MonthlyIncome)
	assert.WithinDuration(t, s.CreatedAt, got.CreatedAt, time.Millisecond)

	s.Stage = entity.StageComplete
	s.CreditScore = 750
	require.NoError(t, repo.Put(ctx, s))

	got, err = repo.Get(ctx, s.SenderID)
	require.NoError(t, err)
	assert.Equal(t, entity.StageComplete, got.Stage)
	assert.Equal(t, 750, got.CreditScore)

	require.NoError(t, repo.Delete(ctx, s.SenderID))
	_, err = repo.Get(ctx, s.SenderID)
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestSQLitePurgeIdle(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	stale := entity.NewSession("stale")
	stale.UpdatedAt = time.Now().Add(-2 * time.Hour)
	fresh := entity.NewSession("fresh")

	require.NoError(t, repo.Put(ctx, stale))
	require.NoError(t, repo.Put(ctx, fresh))

	n, err := repo.PurgeIdle(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(ctx, "stale")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
	_, err = repo.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestSQLiteKeepsLanguageAndLargeNumbers(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	s := entity.NewSession("whatsapp:+919800000002")
	s.Stage = entity.StageComplete
	s.MonthlyIncome = 9_000_000_000
	s.CreditScore = 3_000_000_000
	s.Language = "hi"
	require.NoError(t, repo.Put(ctx, s))

	got, err := repo.Get(ctx, s.SenderID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Language)
	assert.Equal(t, 9_000_000_000, got.MonthlyIncome)
	assert.Equal(t, 3_000_000_000, got.CreditScore)
}

func TestSQLiteRejectsCorruptStage(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO onboarding_sessions (sender_id, stage, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		"broken", "DONE", time.Now().UnixMilli(), time.Now().UnixMilli())
	require.NoError(t, err)

	_, err = repo.Get(ctx, "broken")
	assert.ErrorIs(t, err, entity.ErrInvalidStage)
	assert.NotErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestSQLiteAddsLanguageColumnToOldFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	old, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = old.Exec(`CREATE TABLE onboarding_sessions (
		sender_id TEXT PRIMARY KEY,
		stage TEXT NOT NULL,
		employment_status TEXT NOT NULL DEFAULT '',
		monthly_income INTEGER NOT NULL DEFAULT 0,
		credit_score INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	require.NoError(t, err)
	require.NoError(t, old.Close())

	repo, err := NewSQLiteSessionRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	s := entity.NewSession("web:u1")
	s.Language = "ta"
	require.NoError(t, repo.Put(context.Background(), s))

	got, err := repo.Get(context.Background(), "web:u1")
	require.NoError(t, err)
	assert.Equal(t, "ta", got.Language)
}
