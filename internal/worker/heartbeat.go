package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"forest.app/forest/common/logger"
	"forest.app/forest/common/metrics"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Heartbeat runs the named checks every interval and records the time of the
// last round where all of them passed.
type Heartbeat struct {
	interval time.Duration
	checks   map[string]Check
	now      func() time.Time
}

func NewHeartbeat(interval time.Duration, checks map[string]Check) *Heartbeat {
	return &Heartbeat{interval: interval, checks: checks, now: time.Now}
}

func (h *Heartbeat) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "forest.worker.heartbeat"})

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	_ = h.Beat(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = h.Beat(ctx)
		}
	}
}

// Beat runs one round of checks.
func (h *Heartbeat) Beat(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	var errs []error
	for name, check := range h.checks {
		if err := check(checkCtx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		slog.WarnContext(ctx, "heartbeat check failed", "error", err)
		return err
	}

	metrics.WorkerHeartbeat.Set(float64(h.now().Unix()))
	slog.DebugContext(ctx, "heartbeat", "checks", len(h.checks))
	return nil
}
