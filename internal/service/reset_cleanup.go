package service

import (
	"context"
	"time"

	"github.com/vnlease/vnlease-api/internal/repository"
	"github.com/vnlease/vnlease-api/pkg/logger"
)

// RunResetCleanup periodically purges settled and long-expired password
// reset records. Runs until ctx is cancelled.
func RunResetCleanup(ctx context.Context, resets repository.ResetRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := resets.DeleteExpired(ctx)
			if err != nil {
				logger.WarnContext(ctx, "Reset token cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				logger.InfoContext(ctx, "Reset token cleanup", "deleted", deleted)
			}
		}
	}
}
