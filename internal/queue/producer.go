package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"forest.app/forest/common/metrics"
)

type Producer interface {
	Enqueue(ctx context.Context, job Job) error
	EnqueueRebalance(ctx context.Context, userID, nodeID string) error
	EnqueueExport(ctx context.Context, userID string) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, job Job) error {
	if !job.Type.Valid() {
		return fmt.Errorf("enqueue job: unknown job type %q", job.Type)
	}
	if job.Attempt <= 0 {
		job.Attempt = 1
	}
	// Jobs carry the enqueuing request's trace so worker logs can be joined to it.
	if job.TraceID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			job.TraceID = sc.TraceID().String()
		}
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: jobValues(job),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	metrics.QueueJobsTotal.WithLabelValues(string(job.Type), "enqueued").Inc()
	p.logger.InfoContext(ctx, "enqueued job", "job_type", job.Type, "node_id", job.NodeID, "attempt", job.Attempt)
	return nil
}

func (p *redisProducer) EnqueueRebalance(ctx context.Context, userID, nodeID string) error {
	return p.Enqueue(ctx, Job{Type: JobTypeHTARebalance, UserID: userID, NodeID: nodeID})
}

func (p *redisProducer) EnqueueExport(ctx context.Context, userID string) error {
	return p.Enqueue(ctx, Job{Type: JobTypeSnapshotExport, UserID: userID})
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

func jobValues(job Job) map[string]any {
	values := map[string]any{
		"job_type": string(job.Type),
		"user_id":  job.UserID,
		"attempt":  job.Attempt,
	}
	if job.NodeID != "" {
		values["node_id"] = job.NodeID
	}
	if job.TraceID != "" {
		values["trace_id"] = job.TraceID
	}
	return values
}
