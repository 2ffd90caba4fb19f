// Package scheduler runs periodic jobs inside the service process.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Job is one scheduled run. Errors are logged by the job itself.
type Job func(ctx context.Context)

// Every runs job on a fixed interval until ctx is cancelled. When
// runOnStart is set the first run happens immediately. Runs never overlap.
func Every(ctx context.Context, interval time.Duration, runOnStart bool, name string, logger *slog.Logger, job Job) {
	if runOnStart {
		run(ctx, name, logger, job)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(ctx, name, logger, job)
		}
	}
}

func run(ctx context.Context, name string, logger *slog.Logger, job Job) {
	started := time.Now()
	logger.Info("scheduled job started", slog.String("job", name))
	job(ctx)
	logger.Info("scheduled job finished", slog.String("job", name), slog.Duration("took", time.Since(started)))
}
