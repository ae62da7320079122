package worker

import (
	"context"
	"time"

	"forest.app/forest/internal/queue"
	"forest.app/forest/internal/service"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Claim(ctx context.Context, minIdle time.Duration, count int64) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// Maintenance mirrors the parts of service.MaintenanceService jobs run.
type Maintenance interface {
	Rebalance(ctx context.Context, userID, completedNodeID string) error
	ExportFlow(ctx context.Context, userID, dir string) (string, error)
}

// JobProcessor runs one job.
type JobProcessor interface {
	Process(ctx context.Context, job queue.Job) error
}

var (
	_ Consumer    = (*queue.RedisConsumer)(nil)
	_ Maintenance = service.MaintenanceService(nil)
)
