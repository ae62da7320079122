package service

import (
	"context"
	"fmt"
	"log/slog"

	"forest.app/forest/common/logger"
	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/model"
	"forest.app/forest/internal/store"
)

type CompletionService interface {
	Complete(ctx context.Context, userID, taskID string, success bool) (*brain.CompletionResult, error)
}

type completionService struct {
	snapshots store.SnapshotStore
	txRunner  TxRunner
	orch      Orchestrator
}

func NewCompletionService(snapshots store.SnapshotStore, txRunner TxRunner, orch Orchestrator) CompletionService {
	return &completionService{snapshots: snapshots, txRunner: txRunner, orch: orch}
}

// Complete records the outcome of an issued task. An unknown task id is not
// an error: the result carries the message and nothing but the event log
// changes.
func (s *completionService) Complete(ctx context.Context, userID, taskID string, success bool) (*brain.CompletionResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{TaskID: &taskID})

	snap, row, err := loadSnapshot(ctx, s.snapshots, userID, s.orch.Now())
	if err != nil {
		return nil, err
	}
	if !snap.ActivatedState.Activated {
		slog.WarnContext(ctx, "task completion before onboarding")
		return nil, ErrNotActivated
	}

	res, err := s.orch.ProcessTaskCompletion(ctx, brain.CompletionInput{UserID: userID, TaskID: taskID, Success: success}, snap)
	if err != nil {
		return nil, fmt.Errorf("processing task completion: %w", err)
	}

	ec := newEventContext(snap, s.orch.Archetypes())
	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		ev, err := ec.taskEvent(taskID, model.TaskEventCompleted, res.Task.HTANodeID, map[string]any{"success": success})
		if err != nil {
			return err
		}
		if err := stores.TaskEvents().Create(ctx, ev); err != nil {
			return fmt.Errorf("logging task event: %w", err)
		}
		_, err = saveSnapshot(ctx, stores.Snapshots(), userID, snap, row)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "task completion processed", "success", success, "xp_awarded", res.XPAwarded)
	if res.RebalanceNodeID != "" {
		s.requestRebalance(ctx, userID, res.RebalanceNodeID)
	}
	return res, nil
}

// requestRebalance runs after the completion is committed. When the queue
// refuses the job the rebalance runs inline on a fresh read of the row.
// Failures only leave the current tree in place.
func (s *completionService) requestRebalance(ctx context.Context, userID, nodeID string) {
	err := s.orch.EnqueueRebalance(ctx, userID, nodeID)
	if err == nil {
		return
	}
	slog.WarnContext(ctx, "queueing hta rebalance failed, running inline", "node_id", nodeID, "error", err)

	snap, row, err := loadSnapshot(ctx, s.snapshots, userID, s.orch.Now())
	if err == nil {
		err = s.orch.Rebalance(ctx, snap, nodeID)
	}
	if err == nil {
		_, err = saveSnapshot(ctx, s.snapshots, userID, snap, row)
	}
	if err != nil {
		slog.WarnContext(ctx, "hta rebalance failed, keeping current tree", "node_id", nodeID, "error", err)
	}
}
