package service

import (
	"context"
	"time"

	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/seed"
	"forest.app/forest/internal/snapshot"
	"forest.app/forest/internal/trigger"
)

// Orchestrator is the part of the brain the services drive. *brain.Orchestrator
// implements it.
type Orchestrator interface {
	SetGoal(ctx context.Context, snap *snapshot.Snapshot, intention string) (brain.RefinedGoal, error)
	Activate(ctx context.Context, snap *snapshot.Snapshot, contextReflection string) (*brain.Activation, error)
	HandleTrigger(ctx context.Context, snap *snapshot.Snapshot, input string) (trigger.Result, bool, error)
	ProcessReflection(ctx context.Context, userID, text string, snap *snapshot.Snapshot) (*brain.ReflectionResult, error)
	ProcessTaskCompletion(ctx context.Context, in brain.CompletionInput, snap *snapshot.Snapshot) (*brain.CompletionResult, error)
	Rebalance(ctx context.Context, snap *snapshot.Snapshot, completedNodeID string) error
	EnqueueRebalance(ctx context.Context, userID, nodeID string) error
	PlantSeed(ctx context.Context, snap *snapshot.Snapshot, intention, domain string, c seed.Context) (*seed.Seed, error)
	EvolveSeed(ctx context.Context, snap *snapshot.Snapshot, seedID, evolution, intention string) error
	Archetypes() brain.ArchetypeSource
	Now() time.Time
}

var _ Orchestrator = (*brain.Orchestrator)(nil)
