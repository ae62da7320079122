package worker_test

import (
	"context"
	"sync"
	"time"

	"forest.app/forest/internal/queue"
)

type mockConsumer struct {
	mu       sync.Mutex
	batches  [][]queue.Message
	claims   []queue.Message
	acked    []string
	requeued []string
	dead     []string
	readErr  error
}

func (m *mockConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	m.mu.Lock()
	if m.readErr != nil {
		err := m.readErr
		m.mu.Unlock()
		return nil, err
	}
	if len(m.batches) > 0 {
		next := m.batches[0]
		m.batches = m.batches[1:]
		m.mu.Unlock()
		return next, nil
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	}
}

func (m *mockConsumer) Claim(context.Context, time.Duration, int64) ([]queue.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.claims
	m.claims = nil
	return out, nil
}

func (m *mockConsumer) Ack(_ context.Context, msg queue.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, msg.ID)
	return nil
}

func (m *mockConsumer) Requeue(_ context.Context, msg queue.Message, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requeued = append(m.requeued, msg.ID)
	return nil
}

func (m *mockConsumer) SendDLQ(_ context.Context, msg queue.Message, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dead = append(m.dead, msg.ID)
	return nil
}

func (m *mockConsumer) snapshot() (acked, requeued, dead []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...), append([]string(nil), m.requeued...), append([]string(nil), m.dead...)
}

type mockProcessor struct {
	processFn func(ctx context.Context, job queue.Job) error
}

func (m *mockProcessor) Process(ctx context.Context, job queue.Job) error {
	if m.processFn != nil {
		return m.processFn(ctx, job)
	}
	return nil
}

type mockMaintenance struct {
	rebalanceFn func(ctx context.Context, userID, nodeID string) error
	exportFn    func(ctx context.Context, userID, dir string) (string, error)
}

func (m *mockMaintenance) Rebalance(ctx context.Context, userID, nodeID string) error {
	if m.rebalanceFn != nil {
		return m.rebalanceFn(ctx, userID, nodeID)
	}
	return nil
}

func (m *mockMaintenance) ExportFlow(ctx context.Context, userID, dir string) (string, error) {
	if m.exportFn != nil {
		return m.exportFn(ctx, userID, dir)
	}
	return dir + "/" + userID + ".json", nil
}

func message(id string, job queue.Job, attempt int) queue.Message {
	job.Attempt = attempt
	return queue.Message{ID: id, Job: job, Attempt: attempt}
}
