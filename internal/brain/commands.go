package brain

import (
	"context"
	"fmt"
	"log/slog"

	"forest.app/forest/internal/seed"
	"forest.app/forest/internal/snapshot"
	"forest.app/forest/internal/trigger"
)

// HandleTrigger answers input when it is one of the fixed command phrases.
// It reports false for ordinary reflections. Activating the forest and
// integrating memory force a compressed snapshot into the snapshot flow.
func (o *Orchestrator) HandleTrigger(ctx context.Context, snap *snapshot.Snapshot, input string) (trigger.Result, bool, error) {
	action, ok := trigger.Detect(input)
	if !ok {
		return trigger.Result{}, false, nil
	}

	st, err := LoadStates(snap, o.archetypes)
	if err != nil {
		slog.WarnContext(ctx, "continuing with partially loaded states", "error", err)
	}

	env := trigger.Env{Backlog: snap.TaskBacklog}
	switch action {
	case trigger.ActionActivate, trigger.ActionIntegrateMemory:
		c := st.Flow.Force(snap, st.activeSeedName(), o.now())
		env.Context = snapshot.ContextString(&c)
		if err := st.Save(snap); err != nil {
			return trigger.Result{}, true, fmt.Errorf("saving component states: %w", err)
		}
		snap.Touch(o.now())
	}

	res := trigger.Handle(input, env)
	slog.InfoContext(ctx, "trigger phrase handled", "action", res.Action)
	return res, true, nil
}

// PlantSeed adds a new seed for intention to the user's garden.
func (o *Orchestrator) PlantSeed(ctx context.Context, snap *snapshot.Snapshot, intention, domain string, c seed.Context) (*seed.Seed, error) {
	st, err := LoadStates(snap, o.archetypes)
	if err != nil {
		slog.WarnContext(ctx, "continuing with partially loaded states", "error", err)
	}

	s := st.Seeds.Plant(intention, domain, c)
	if err := st.Save(snap); err != nil {
		return nil, fmt.Errorf("saving component states: %w", err)
	}
	snap.Touch(o.now())
	slog.InfoContext(ctx, "seed planted", "seed_id", s.ID, "seed_name", s.Name)
	return s, nil
}

// EvolveSeed applies an evolution to an existing seed.
func (o *Orchestrator) EvolveSeed(ctx context.Context, snap *snapshot.Snapshot, seedID, evolution, intention string) error {
	st, err := LoadStates(snap, o.archetypes)
	if err != nil {
		slog.WarnContext(ctx, "continuing with partially loaded states", "error", err)
	}

	if err := st.Seeds.Evolve(seedID, evolution, intention); err != nil {
		return err
	}
	if err := st.Save(snap); err != nil {
		return fmt.Errorf("saving component states: %w", err)
	}
	snap.Touch(o.now())
	return nil
}
