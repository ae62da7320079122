package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"forest.app/forest/common/logger"
	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/model"
	"forest.app/forest/internal/store"
	"forest.app/forest/internal/trigger"
)

// CommandResult holds either the answer to a trigger phrase or a processed
// reflection.
type CommandResult struct {
	Trigger        *trigger.Result
	Reflection     *brain.ReflectionResult
	ReflectionID   string
	WitheringLevel float64
}

type CommandService interface {
	Process(ctx context.Context, userID, command string) (*CommandResult, error)
}

type commandService struct {
	snapshots store.SnapshotStore
	txRunner  TxRunner
	orch      Orchestrator
}

func NewCommandService(snapshots store.SnapshotStore, txRunner TxRunner, orch Orchestrator) CommandService {
	return &commandService{snapshots: snapshots, txRunner: txRunner, orch: orch}
}

func (s *commandService) Process(ctx context.Context, userID, command string) (*CommandResult, error) {
	snap, row, err := loadSnapshot(ctx, s.snapshots, userID, s.orch.Now())
	if err != nil {
		return nil, err
	}
	if !snap.ActivatedState.Activated {
		if snap.ActivatedState.GoalSet {
			return nil, ErrNotActivated
		}
		return nil, ErrGoalNotSet
	}

	res, triggered, err := s.orch.HandleTrigger(ctx, snap, command)
	if err != nil {
		return nil, fmt.Errorf("handling trigger phrase: %w", err)
	}
	if triggered {
		if _, err := saveSnapshot(ctx, s.snapshots, userID, snap, row); err != nil {
			return nil, err
		}
		return &CommandResult{Trigger: &res, WitheringLevel: snap.WitheringLevel}, nil
	}

	reflectionID := uuid.NewString()
	ctx = logger.WithLogFields(ctx, logger.LogFields{ReflectionID: &reflectionID})

	out, err := s.orch.ProcessReflection(ctx, userID, command, snap)
	if err != nil {
		return nil, fmt.Errorf("processing reflection: %w", err)
	}

	ec := newEventContext(snap, s.orch.Archetypes())
	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		refl, err := ec.reflectionEvent(reflectionID, out.SentimentScore, map[string]any{"input_length": len(command)})
		if err != nil {
			return err
		}
		if err := stores.ReflectionEvents().Create(ctx, refl); err != nil {
			return fmt.Errorf("logging reflection event: %w", err)
		}

		if out.Task.ID != "" {
			ev, err := ec.taskEvent(out.Task.ID, model.TaskEventGenerated, out.Task.HTANodeID, map[string]any{"title": out.Task.Title})
			if err != nil {
				return err
			}
			if err := stores.TaskEvents().Create(ctx, ev); err != nil {
				return fmt.Errorf("logging task event: %w", err)
			}
		}

		_, err = saveSnapshot(ctx, stores.Snapshots(), userID, snap, row)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "reflection processed", "task_id", out.Task.ID, "llm_fallback", out.FallbackUsed)
	return &CommandResult{Reflection: out, ReflectionID: reflectionID, WitheringLevel: out.WitheringLevel}, nil
}
