package worker

import (
	"context"
	"log"
	"time"

	"github.com/xavierca1/loan-advisor/internal/entity"
)

// MediaPurger removes voice notes older than the cutoff.
type MediaPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExpirationWorker forgets idle onboarding sessions in the SQL stores and
// removes stale voice notes. The in-memory store expires entries itself.
type ExpirationWorker struct {
	sessions     entity.SessionPurger
	media        MediaPurger
	sessionTTL   time.Duration
	mediaTTL     time.Duration
	tickInterval time.Duration
	now          func() time.Time
}

// NewExpirationWorker accepts nil for either purger.
func NewExpirationWorker(sessions entity.SessionPurger, media MediaPurger, sessionTTL, mediaTTL, tick time.Duration) *ExpirationWorker {
	if tick <= 0 {
		tick = time.Minute
	}
	return &ExpirationWorker{
		sessions:     sessions,
		media:        media,
		sessionTTL:   sessionTTL,
		mediaTTL:     mediaTTL,
		tickInterval: tick,
		now:          time.Now,
	}
}

func (w *ExpirationWorker) Start(ctx context.Context) {
	log.Printf("🕒 Expiration worker started (sessions=%s media=%s)", w.sessionTTL, w.mediaTTL)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Expiration worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single purge pass.
func (w *ExpirationWorker) RunOnce(ctx context.Context) {
	now := w.now()

	if w.sessions != nil && w.sessionTTL > 0 {
		n, err := w.sessions.PurgeIdle(ctx, now.Add(-w.sessionTTL))
		if err != nil {
			log.Printf("❌ Expiration: session purge failed: %v", err)
		} else if n > 0 {
			log.Printf("✅ Expiration: %d idle session(s) removed", n)
		}
	}

	if w.media != nil && w.mediaTTL > 0 {
		n, err := w.media.PurgeOlderThan(ctx, now.Add(-w.mediaTTL))
		if err != nil {
			log.Printf("❌ Expiration: media purge failed: %v", err)
		} else if n > 0 {
			log.Printf("🧹 Expiration: %d voice note(s) removed", n)
		}
	}
}
