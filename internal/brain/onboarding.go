package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/hta"
	"forest.app/forest/internal/seed"
	"forest.app/forest/internal/snapshot"
	"forest.app/forest/internal/taskengine"
)

// GoalSeedDomain is the domain of the seed planted for a user's North Star.
const GoalSeedDomain = "User Goal"

var ErrNoGoalSeed = errors.New("no goal seed in snapshot")

// SetGoal refines intention into the user's North Star, plants it as a seed
// with a single-node HTA tree and marks the goal as set. A failed refinement
// falls back to the raw intention.
func (o *Orchestrator) SetGoal(ctx context.Context, snap *snapshot.Snapshot, intention string) (RefinedGoal, error) {
	st, err := LoadStates(snap, o.archetypes)
	if err != nil {
		slog.WarnContext(ctx, "continuing with partially loaded states", "error", err)
	}

	goal, err := o.goals.Refine(ctx, intention)
	if err != nil {
		slog.WarnContext(ctx, "goal refinement failed, using intention as goal", "error", err)
		goal = FallbackGoal(intention)
	}

	s := seed.New(goal.Title, GoalSeedDomain, goal.Description)
	s.HTATree = hta.NewTree(hta.NewNode(uuid.NewString(), s.Name, s.Description, 1.0))
	st.Seeds.Add(s)
	snap.CoreState.HTATree = s.HTATree
	snap.ActivatedState.GoalSet = true

	if err := st.Save(snap); err != nil {
		return RefinedGoal{}, fmt.Errorf("saving component states: %w", err)
	}
	snap.Touch(o.now())
	return goal, nil
}

// Activation is the outcome of the second onboarding step.
type Activation struct {
	Goal      RefinedGoal
	FirstTask *domain.Task
}

// Activate generates the HTA skeleton under the goal seed from the user's
// context reflection and marks the user as activated. An LLM failure is
// returned and leaves snap untouched.
func (o *Orchestrator) Activate(ctx context.Context, snap *snapshot.Snapshot, contextReflection string) (*Activation, error) {
	st, err := LoadStates(snap, o.archetypes)
	if err != nil {
		slog.WarnContext(ctx, "continuing with partially loaded states", "error", err)
	}

	seeds := st.Seeds.All()
	if len(seeds) == 0 {
		return nil, ErrNoGoalSeed
	}
	goalSeed := seeds[0]
	tree := goalSeed.HTATree
	if tree == nil || tree.Root == nil {
		tree = snap.CoreState.HTATree
	}
	if tree == nil || tree.Root == nil {
		return nil, fmt.Errorf("goal seed %q: %w", goalSeed.ID, hta.ErrEmptyTree)
	}
	root := tree.Root

	skeleton, err := o.planner.Skeleton(ctx, root, contextReflection, PruneContext(snap))
	if err != nil {
		return nil, fmt.Errorf("generating hta skeleton: %w", err)
	}

	if err := st.Seeds.Update(goalSeed.ID, seed.Update{HTATree: skeleton}); err != nil {
		return nil, err
	}
	snap.CoreState.HTATree = skeleton
	snap.ActivatedState.Activated = true

	if err := st.Save(snap); err != nil {
		return nil, fmt.Errorf("saving component states: %w", err)
	}
	snap.Touch(o.now())

	act := &Activation{Goal: RefinedGoal{Title: root.Title, Description: root.Description}}
	next := o.tasks.NextStep(taskengine.Input{
		Tree:     st.ActiveTree(snap),
		XP:       snap.XP,
		Capacity: &snap.Capacity,
		Tier:     snap.CurrentTier,
		DevIndex: st.DevIndex.Snapshot(),
	})
	if next.BaseTask.ID != "" {
		act.FirstTask = &next.BaseTask
	}
	return act, nil
}
