package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"forest.app/forest/internal/queue"
	"forest.app/forest/internal/service"
)

// ErrPermanent marks job failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent job failure")

type processor struct {
	maintenance Maintenance
	exportDir   string
}

func NewProcessor(maintenance Maintenance, exportDir string) JobProcessor {
	return &processor{maintenance: maintenance, exportDir: exportDir}
}

func (p *processor) Process(ctx context.Context, job queue.Job) error {
	switch job.Type {
	case queue.JobTypeHTARebalance:
		err := p.maintenance.Rebalance(ctx, job.UserID, job.NodeID)
		if errors.Is(err, service.ErrSnapshotNotFound) {
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		return err

	case queue.JobTypeSnapshotExport:
		path, err := p.maintenance.ExportFlow(ctx, job.UserID, p.exportDir)
		if err != nil {
			if errors.Is(err, service.ErrSnapshotNotFound) {
				return fmt.Errorf("%w: %v", ErrPermanent, err)
			}
			return err
		}
		slog.InfoContext(ctx, "snapshot exported", "path", path)
		return nil
	}
	return fmt.Errorf("%w: unknown job type %q", ErrPermanent, job.Type)
}
