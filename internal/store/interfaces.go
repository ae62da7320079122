package store

import (
	"context"
	"errors"

	"forest.app/forest/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// SnapshotStore defines the contract for memory snapshot data access
type SnapshotStore interface {
	// Latest returns the most recently updated snapshot of a user.
	Latest(ctx context.Context, userID string) (*model.MemorySnapshot, error)
	Create(ctx context.Context, snap *model.MemorySnapshot) error
	Update(ctx context.Context, snap *model.MemorySnapshot) error
}

// TaskEventStore defines the contract for task event log access
type TaskEventStore interface {
	Create(ctx context.Context, log *model.TaskEventLog) error
	ListByTask(ctx context.Context, taskID string) ([]model.TaskEventLog, error)
}

// ReflectionEventStore defines the contract for reflection event log access
type ReflectionEventStore interface {
	Create(ctx context.Context, log *model.ReflectionEventLog) error
	ListByReflection(ctx context.Context, reflectionID string) ([]model.ReflectionEventLog, error)
}
