package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"lectern/internal/logging"
)

// ReclaimStale rolls processing sessions whose heartbeats have expired back
// to the checkpoint their stage started from. A non-positive heartbeat
// timeout disables reclamation.
func (r *Runner) ReclaimStale(ctx context.Context) (int64, error) {
	timeout := time.Duration(r.cfg.Workflow.HeartbeatTimeout) * time.Second
	if timeout <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-timeout)
	reclaimed, err := r.store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if reclaimed > 0 {
		r.opLogger(ctx).Info("reclaimed stale sessions", logging.Int64("count", reclaimed))
	}
	return reclaimed, nil
}

// StartReclaimLoop periodically reclaims stale sessions until the context
// ends. The daemon runs one loop per process.
func (r *Runner) StartReclaimLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.logger, "pipeline-reclaimer"))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ReclaimStale(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("shutdown during stale session reclaim")
				} else {
					logger.Warn("stale session reclaim failed", logging.Error(err))
				}
			}
		}
	}
}
