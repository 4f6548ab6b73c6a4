package coach

import (
	"context"
	"log/slog"
	"time"

	"formcoach/internal/store"
)

const reaperInterval = time.Minute

// StartReaper runs a background goroutine that periodically finalizes idle
// workout sessions and prunes ended rows past retention, so the store never
// accumulates cross-session history.
func StartReaper(ctx context.Context, repo store.Repository, sm *SessionManager, idleAfter, retention time.Duration) {
	ticker := time.NewTicker(reaperInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session reaper started", "interval", reaperInterval, "idle_after", idleAfter, "retention", retention)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, repo, sm, idleAfter, retention)
			case <-ctx.Done():
				slog.Info("Session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, repo store.Repository, sm *SessionManager, idleAfter, retention time.Duration) {
	idle, err := repo.GetIdleSessions(ctx, idleAfter)
	if err != nil {
		slog.Error("Reaper failed to get idle sessions", "error", err)
		return
	}

	for _, session := range idle {
		slog.Info("Reaper finalizing idle session",
			"session_id", session.ID,
			"user_id", session.UserID,
			"rep_count", session.RepCount)

		sm.CloseUser(session.UserID)

		if err := repo.EndSession(ctx, session.ID, time.Now()); err != nil {
			slog.Warn("Reaper failed to end session",
				"error", err,
				"session_id", session.ID)
		}
	}

	if len(idle) > 0 {
		slog.Info("Reaper sweep completed", "finalized", len(idle))
	}

	if deleted, err := repo.DeleteEndedSessions(ctx, retention); err != nil {
		slog.Error("Reaper failed to prune ended sessions", "error", err)
	} else if deleted > 0 {
		slog.Info("Reaper pruned ended sessions", "count", deleted)
	}
}
