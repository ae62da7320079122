package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/model"
	"forest.app/forest/internal/snapshot"
	"forest.app/forest/internal/store"
)

// SnapshotService reads a user's state and the event logs written for it.
type SnapshotService interface {
	Latest(ctx context.Context, userID string) (*snapshot.Snapshot, error)
	TaskEvents(ctx context.Context, taskID string) ([]model.TaskEventLog, error)
	ReflectionEvents(ctx context.Context, reflectionID string) ([]model.ReflectionEventLog, error)
}

type snapshotService struct {
	snapshots        store.SnapshotStore
	taskEvents       store.TaskEventStore
	reflectionEvents store.ReflectionEventStore
	now              func() time.Time
}

func NewSnapshotService(snapshots store.SnapshotStore, taskEvents store.TaskEventStore, reflectionEvents store.ReflectionEventStore) SnapshotService {
	return &snapshotService{
		snapshots:        snapshots,
		taskEvents:       taskEvents,
		reflectionEvents: reflectionEvents,
		now:              time.Now,
	}
}

func (s *snapshotService) Latest(ctx context.Context, userID string) (*snapshot.Snapshot, error) {
	snap, _, err := loadSnapshot(ctx, s.snapshots, userID, s.now())
	return snap, err
}

func (s *snapshotService) TaskEvents(ctx context.Context, taskID string) ([]model.TaskEventLog, error) {
	logs, err := s.taskEvents.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("listing task events: %w", err)
	}
	return logs, nil
}

func (s *snapshotService) ReflectionEvents(ctx context.Context, reflectionID string) ([]model.ReflectionEventLog, error) {
	logs, err := s.reflectionEvents.ListByReflection(ctx, reflectionID)
	if err != nil {
		return nil, fmt.Errorf("listing reflection events: %w", err)
	}
	return logs, nil
}

// loadSnapshot returns the user's latest snapshot together with the row it
// came from.
func loadSnapshot(ctx context.Context, snapshots store.SnapshotStore, userID string, now time.Time) (*snapshot.Snapshot, *model.MemorySnapshot, error) {
	row, err := snapshots.Latest(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrSnapshotNotFound
		}
		return nil, nil, fmt.Errorf("loading snapshot: %w", err)
	}

	snap, err := snapshot.FromJSON(row.SnapshotData, now)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding snapshot %d: %w", row.ID, err)
	}
	return snap, row, nil
}

// saveSnapshot updates row, or creates the user's first row when row is nil.
func saveSnapshot(ctx context.Context, snapshots store.SnapshotStore, userID string, snap *snapshot.Snapshot, row *model.MemorySnapshot) (*model.MemorySnapshot, error) {
	data, err := snap.JSON()
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	if row == nil {
		row = &model.MemorySnapshot{UserID: userID, SnapshotData: model.JSON(data)}
		if err := snapshots.Create(ctx, row); err != nil {
			return nil, fmt.Errorf("creating snapshot: %w", err)
		}
		slog.InfoContext(ctx, "initial snapshot saved", "snapshot_id", row.ID)
		return row, nil
	}

	row.SnapshotData = model.JSON(data)
	if err := snapshots.Update(ctx, row); err != nil {
		return nil, fmt.Errorf("updating snapshot %d: %w", row.ID, err)
	}
	slog.DebugContext(ctx, "snapshot updated", "snapshot_id", row.ID)
	return row, nil
}

// eventContext is the user state stamped on every event log row.
type eventContext struct {
	capacity      float64
	shadowScore   float64
	seedName      *string
	archetypeName *string
}

func newEventContext(snap *snapshot.Snapshot, archetypes brain.ArchetypeSource) eventContext {
	ec := eventContext{capacity: snap.Capacity, shadowScore: snap.ShadowScore}
	st, _ := brain.LoadStates(snap, archetypes)
	seedName, archetypeName := st.ActiveNames()
	if seedName != "" {
		ec.seedName = &seedName
	}
	if archetypeName != "" {
		ec.archetypeName = &archetypeName
	}
	return ec
}

func (ec eventContext) taskEvent(taskID string, typ model.TaskEventType, nodeID string, metadata map[string]any) (*model.TaskEventLog, error) {
	meta, err := model.NewJSON(metadata)
	if err != nil {
		return nil, err
	}
	log := &model.TaskEventLog{
		TaskID:              taskID,
		EventType:           string(typ),
		CapacityAtEvent:     &ec.capacity,
		ShadowScoreAtEvent:  &ec.shadowScore,
		ActiveSeedName:      ec.seedName,
		ActiveArchetypeName: ec.archetypeName,
		EventMetadata:       meta,
	}
	if nodeID != "" {
		log.LinkedHTANodeID = &nodeID
	}
	return log, nil
}

func (ec eventContext) reflectionEvent(reflectionID string, sentiment float64, metadata map[string]any) (*model.ReflectionEventLog, error) {
	meta, err := model.NewJSON(metadata)
	if err != nil {
		return nil, err
	}
	return &model.ReflectionEventLog{
		ReflectionID:        reflectionID,
		EventType:           string(model.ReflectionEventProcessed),
		SentimentScore:      &sentiment,
		CapacityAtEvent:     &ec.capacity,
		ShadowScoreAtEvent:  &ec.shadowScore,
		ActiveSeedName:      ec.seedName,
		ActiveArchetypeName: ec.archetypeName,
		EventMetadata:       meta,
	}, nil
}
