package brain

import (
	"encoding/json"
	"errors"
	"fmt"

	"forest.app/forest/internal/archetype"
	"forest.app/forest/internal/consequence"
	"forest.app/forest/internal/devindex"
	"forest.app/forest/internal/hta"
	"forest.app/forest/internal/pattern"
	"forest.app/forest/internal/relational"
	"forest.app/forest/internal/reward"
	"forest.app/forest/internal/seed"
	"forest.app/forest/internal/shadow"
	"forest.app/forest/internal/snapshot"
	"forest.app/forest/internal/trail"
)

// ArchetypeSource provides the archetype definitions a new user starts with.
type ArchetypeSource interface {
	Definitions() []archetype.Archetype
}

type staticArchetypes []archetype.Archetype

func (s staticArchetypes) Definitions() []archetype.Archetype { return s }

// States is every engine state kept in a snapshot's component_state.
type States struct {
	Seeds       *seed.Manager
	Archetypes  *archetype.Manager
	DevIndex    *devindex.Index
	Momentum    *devindex.Momentum
	Sentiment   SentimentCalibration
	Pattern     pattern.Config
	Consequence *consequence.Engine
	Integrity   *EmotionalIntegrity
	Financial   *FinancialReadiness
	Relational  *relational.Manager
	Shadow      *shadow.Engine
	Mastery     MasteryState
	Reward      *reward.Index
	Trails      *trail.Manager
	Flow        *snapshot.Flow
}

// LoadStates decodes engine states from snap, starting each missing one
// from its defaults.
func LoadStates(snap *snapshot.Snapshot, defs ArchetypeSource) (*States, error) {
	st := &States{
		Seeds:       seed.NewManager(),
		Archetypes:  archetype.NewManager(),
		DevIndex:    devindex.New(),
		Momentum:    devindex.NewMomentum(),
		Sentiment:   DefaultSentimentCalibration(),
		Pattern:     pattern.DefaultConfig(),
		Consequence: consequence.New(),
		Integrity:   NewEmotionalIntegrity(),
		Financial:   NewFinancialReadiness(),
		Relational:  relational.NewManager(),
		Shadow:      shadow.New(),
		Reward:      reward.New(),
		Trails:      trail.NewManager(),
		Flow:        snapshot.NewFlow(),
	}

	var (
		dev         map[string]float64
		savedShadow shadow.Engine
	)
	targets := []struct {
		key string
		v   any
	}{
		{snapshot.KeySeedManager, st.Seeds},
		{snapshot.KeyDevIndex, &dev},
		{snapshot.KeyMetricsEngine, st.Momentum},
		{snapshot.KeySentiment, &st.Sentiment},
		{snapshot.KeyPatternConfig, &st.Pattern},
		{snapshot.KeyConsequence, st.Consequence},
		{snapshot.KeyEmotionalIntegrity, st.Integrity},
		{snapshot.KeyFinancial, st.Financial},
		{snapshot.KeyRelational, st.Relational},
		{snapshot.KeyShadow, &savedShadow},
		{snapshot.KeyXPMastery, &st.Mastery},
		{snapshot.KeyReward, st.Reward},
		{snapshot.KeyTrail, st.Trails},
		{snapshot.KeySnapshotFlow, st.Flow},
	}

	var errs []error
	for _, t := range targets {
		if _, err := snap.LoadComponent(t.key, t.v); err != nil {
			errs = append(errs, err)
		}
	}

	if len(dev) == 0 {
		dev = snap.DevIndex
	}
	st.DevIndex.Load(dev)
	st.Shadow.Override(savedShadow.Lexicon)
	st.Shadow.LastUpdate = savedShadow.LastUpdate

	ok, err := snap.LoadComponent(snapshot.KeyArchetypeManager, st.Archetypes)
	if err != nil {
		errs = append(errs, err)
	}
	if (!ok || len(st.Archetypes.Archetypes) == 0) && defs != nil {
		st.Archetypes.Load(defs.Definitions())
	}

	if len(errs) > 0 {
		return st, fmt.Errorf("loading component states: %w", errors.Join(errs...))
	}
	return st, nil
}

// Save writes every state back into snap, mirroring the managers that also
// have top-level snapshot fields.
func (st *States) Save(snap *snapshot.Snapshot) error {
	values := map[string]any{
		snapshot.KeySeedManager:        st.Seeds,
		snapshot.KeyArchetypeManager:   st.Archetypes,
		snapshot.KeyDevIndex:           st.DevIndex.Snapshot(),
		snapshot.KeyMetricsEngine:      st.Momentum,
		snapshot.KeySentiment:          st.Sentiment,
		snapshot.KeyPatternConfig:      st.Pattern,
		snapshot.KeyConsequence:        st.Consequence,
		snapshot.KeyEmotionalIntegrity: st.Integrity,
		snapshot.KeyFinancial:          st.Financial,
		snapshot.KeyRelational:         st.Relational,
		snapshot.KeyShadow:             st.Shadow,
		snapshot.KeyXPMastery:          st.Mastery,
		snapshot.KeyReward:             st.Reward,
		snapshot.KeyTrail:              st.Trails,
		snapshot.KeySnapshotFlow:       st.Flow,
	}
	for key, v := range values {
		if err := snap.SaveComponent(key, v); err != nil {
			return err
		}
	}

	snap.DevIndex = st.DevIndex.Snapshot()
	var err error
	if snap.SeedManager, err = json.Marshal(st.Seeds); err != nil {
		return fmt.Errorf("encoding seed manager: %w", err)
	}
	if snap.ArchetypeManager, err = json.Marshal(st.Archetypes); err != nil {
		return fmt.Errorf("encoding archetype manager: %w", err)
	}
	if snap.XPMastery, err = json.Marshal(st.Mastery); err != nil {
		return fmt.Errorf("encoding xp mastery: %w", err)
	}
	return nil
}

// ActiveTree returns the active seed's HTA tree, falling back to the tree
// kept in the snapshot's core state.
func (st *States) ActiveTree(snap *snapshot.Snapshot) *hta.Tree {
	if s := st.Seeds.Active(); s != nil && s.HTATree != nil && s.HTATree.Root != nil {
		return s.HTATree
	}
	return snap.CoreState.HTATree
}

// SetActiveTree stores t on the active seed and in the snapshot's core state.
func (st *States) SetActiveTree(snap *snapshot.Snapshot, t *hta.Tree) {
	if s := st.Seeds.Active(); s != nil {
		_ = st.Seeds.Update(s.ID, seed.Update{HTATree: t})
	}
	snap.CoreState.HTATree = t
}

func (st *States) activeSeedName() string {
	if s := st.Seeds.Active(); s != nil {
		return s.Name
	}
	return ""
}

// ActiveNames returns the names of the active seed and the leading
// archetype, empty when there is none.
func (st *States) ActiveNames() (seedName, archetypeName string) {
	return st.activeSeedName(), st.Archetypes.Leading()
}
