package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"forest.app/forest/common/logger"
	"forest.app/forest/common/metrics"
	"forest.app/forest/internal/queue"
)

type Config struct {
	MaxAttempts int
	// ReclaimInterval is how often pending messages of crashed consumers are
	// taken over. Zero disables reclaiming.
	ReclaimInterval time.Duration
	ReclaimMinIdle  time.Duration
	ReclaimBatch    int64
}

type Worker struct {
	consumer  Consumer
	processor JobProcessor
	cfg       Config
}

func New(consumer Consumer, processor JobProcessor, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ReclaimBatch <= 0 {
		cfg.ReclaimBatch = 10
	}
	return &Worker{
		consumer:  consumer,
		processor: processor,
		cfg:       cfg,
	}
}

// Run reads and processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "forest.worker"})
	slog.InfoContext(ctx, "worker started", "max_attempts", w.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// RunReclaimer periodically claims and processes messages left pending by
// consumers that died before acking.
func (w *Worker) RunReclaimer(ctx context.Context) error {
	if w.cfg.ReclaimInterval <= 0 {
		return nil
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "forest.worker.reclaimer"})

	ticker := time.NewTicker(w.cfg.ReclaimInterval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", w.cfg.ReclaimInterval,
		"min_idle", w.cfg.ReclaimMinIdle)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.reclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			}
		}
	}
}

func (w *Worker) reclaimOnce(ctx context.Context) error {
	messages, err := w.consumer.Claim(ctx, w.cfg.ReclaimMinIdle, w.cfg.ReclaimBatch)
	if err != nil {
		return err
	}
	if len(messages) > 0 {
		slog.InfoContext(ctx, "reclaimed stale pending messages", "count", len(messages))
	}
	w.handle(ctx, messages)
	return nil
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}
	w.handle(ctx, messages)
	return nil
}

func (w *Worker) handle(ctx context.Context, messages []queue.Message) {
	for _, msg := range messages {
		if err := w.ProcessMessage(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"job_type", msg.Job.Type)
			w.handleFailedMessage(ctx, msg, err)
		}
	}
}

// ProcessMessage runs the job and acks it on success.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) (err error) {
	msgID := msg.ID
	jobType := string(msg.Job.Type)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: &msgID,
		JobType:   &jobType,
		UserID:    &msg.Job.UserID,
	})

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in job processing", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	slog.InfoContext(ctx, "processing job", "attempt", msg.Attempt, "trace_id", msg.Job.TraceID)
	start := time.Now()

	if err := w.processor.Process(ctx, msg.Job); err != nil {
		return err
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// The message stays pending and the reclaimer redelivers it. Rebalances
		// skip a node they already handled; exports rewrite the same file.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}

	metrics.QueueJobsTotal.WithLabelValues(jobType, "done").Inc()
	slog.InfoContext(ctx, "job processed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if errors.Is(err, ErrPermanent) || msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "giving up on job, sending to DLQ",
			"message_id", msg.ID,
			"job_type", msg.Job.Type,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"job_type", msg.Job.Type,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
