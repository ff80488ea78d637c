package session

import (
	"context"
	"log/slog"
	"time"
)

// reconcileBatch bounds how many stale sessions one sweep completes.
const reconcileBatch = 100

// StartReconciler runs a background goroutine that periodically completes
// sessions left open longer than after. It does nothing when after is not
// positive.
func StartReconciler(ctx context.Context, l *Lifecycle, after, interval time.Duration) {
	if after <= 0 {
		slog.Info("session reconciler disabled")
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("session reconciler started", "interval", interval, "after", after)

		for {
			select {
			case <-ticker.C:
				if _, err := l.ReconcileStale(ctx, after); err != nil {
					slog.Error("session reconciler sweep failed", "error", err)
				}
			case <-ctx.Done():
				slog.Info("session reconciler shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// ReconcileStale completes every active or paused session whose last update
// is older than after and that has no open view. The recorded duration is
// the elapsed time last reported by a heartbeat, so a session that was never
// driven by a view records zero. It returns how many sessions were completed.
func (l *Lifecycle) ReconcileStale(ctx context.Context, after time.Duration) (int, error) {
	stale, err := l.store.ListStaleSessions(ctx, l.now().Add(-after), reconcileBatch)
	if err != nil {
		return 0, internal("list stale sessions", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}
	slog.Info("session reconciler found stale sessions", "count", len(stale))

	completed := 0
	for i := range stale {
		sess := &stale[i]
		if l.live != nil && l.live(sess.OwnerID, sess.ID) {
			slog.Debug("session reconciler skipped live session", "session_id", sess.ID)
			continue
		}

		secs := sess.LastElapsedSeconds
		if sess.DurationSeconds > secs {
			secs = sess.DurationSeconds
		}
		if _, err := l.complete(ctx, sess, secs); err != nil {
			slog.Warn("session reconciler failed to complete session",
				"session_id", sess.ID,
				"user_id", sess.OwnerID,
				"error", err)
			continue
		}
		completed++
	}

	slog.Info("session reconciler sweep completed", "completed", completed)
	return completed, nil
}
