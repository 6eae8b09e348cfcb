package tasks

import (
	"context"
	"fmt"
	"time"
)

// newCacheSweepTask creates the scheduled task that purges expired
// country-brief cache entries.
func newCacheSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "cache_sweep")

	return func(ctx context.Context) error {
		startTime := time.Now()

		removed, err := deps.Pipeline.SweepCache(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Cache sweep task failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("cache sweep failed: %w", err)
		}

		log.InfoContext(ctx, "Cache sweep task completed", "removed", removed, "duration", time.Since(startTime))
		return nil
	}
}
