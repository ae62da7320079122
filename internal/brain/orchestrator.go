package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"forest.app/forest/common/llm"
	"forest.app/forest/common/logger"
	"forest.app/forest/common/metrics"
	"forest.app/forest/internal/archetype"
	"forest.app/forest/internal/deadline"
	"forest.app/forest/internal/devindex"
	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/harmonic"
	"forest.app/forest/internal/hta"
	"forest.app/forest/internal/mastery"
	"forest.app/forest/internal/pattern"
	"forest.app/forest/internal/relational"
	"forest.app/forest/internal/resistance"
	"forest.app/forest/internal/reward"
	"forest.app/forest/internal/shadow"
	"forest.app/forest/internal/snapshot"
	"forest.app/forest/internal/taskengine"
	"forest.app/forest/internal/trail"
	"forest.app/forest/internal/withering"
)

const (
	SentimentNudge  = 0.05
	ThemeTagCount   = 3
	CompositeTrail  = "composite"
	insightMaxChars = 200
)

var (
	ErrTaskNotInBacklog = errors.New("task not found in backlog")
	ErrNoHTATree        = errors.New("no hta tree to rebalance")
	ErrNoRebalanceQueue = errors.New("no rebalance queue configured")
)

// RebalanceEnqueuer hands HTA rebalances to a background worker.
type RebalanceEnqueuer interface {
	EnqueueRebalance(ctx context.Context, userID, nodeID string) error
}

type ReflectionResult struct {
	Task                 domain.Task        `json:"task"`
	Offering             *reward.Offering   `json:"offering"`
	MasteryChallenge     *mastery.Challenge `json:"mastery_challenge"`
	MagnitudeDescription string             `json:"magnitude_description"`
	ArbiterResponse      string             `json:"arbiter_response"`
	ResonanceTheme       string             `json:"resonance_theme"`
	RoutingScore         float64            `json:"routing_score"`
	WitheringLevel       float64            `json:"withering_level"`
	// RelationalActions suggests one gesture per person the reflection
	// mentions.
	RelationalActions []relational.RepairAction `json:"relational_actions,omitempty"`

	SentimentScore float64 `json:"-"`
	FallbackUsed   bool    `json:"-"`
	ContextSynced  bool    `json:"-"`
}

type CompletionInput struct {
	UserID  string
	TaskID  string
	Success bool
}

type CompletionResult struct {
	Error          string      `json:"error,omitempty"`
	XPAwarded      float64     `json:"xp_awarded"`
	WitheringLevel float64     `json:"withering_level"`
	Task           domain.Task `json:"-"`
	// RebalanceNodeID is set when the rebalance was deferred to the queue.
	// The caller enqueues it with EnqueueRebalance once the snapshot is
	// committed, so the worker never reads the pre-completion row.
	RebalanceNodeID string `json:"-"`
}

type Orchestrator struct {
	sentiment  *SentimentAnalyzer
	integrity  *IntegrityAnalyzer
	desire     *DesireEngine
	financial  *FinancialAssessor
	arbiter    *Arbiter
	planner    *HTAPlanner
	goals      *GoalRefiner
	relational *RelationalAdvisor
	tasks      *taskengine.Engine
	deadlines  *deadline.Scheduler
	archetypes ArchetypeSource
	rebalancer RebalanceEnqueuer
	now        func() time.Time
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRebalanceEnqueuer makes completions queue HTA rebalances instead of
// running them inline.
func WithRebalanceEnqueuer(e RebalanceEnqueuer) Option {
	return func(o *Orchestrator) { o.rebalancer = e }
}

// NewOrchestrator wires the LLM-backed engines to client. A nil archetypes
// source falls back to the built-in definitions.
func NewOrchestrator(client llm.Client, archetypes ArchetypeSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sentiment:  NewSentimentAnalyzer(client),
		integrity:  NewIntegrityAnalyzer(client),
		desire:     NewDesireEngine(client),
		financial:  NewFinancialAssessor(client),
		arbiter:    NewArbiter(client),
		planner:    NewHTAPlanner(client),
		goals:      NewGoalRefiner(client),
		relational: NewRelationalAdvisor(client),
		archetypes: archetypes,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.archetypes == nil {
		o.archetypes = staticArchetypes(archetype.Defaults())
	}
	o.tasks = taskengine.New(taskengine.WithClock(o.now))
	o.deadlines = deadline.NewScheduler(deadline.WithClock(o.now))
	o.financial.now = o.now

	slog.Info("orchestrator initialized", "model", client.Model(), "async_rebalance", o.rebalancer != nil)
	return o
}

// Planner exposes the HTA planner used for onboarding.
func (o *Orchestrator) Planner() *HTAPlanner { return o.planner }

func (o *Orchestrator) Archetypes() ArchetypeSource { return o.archetypes }

func (o *Orchestrator) Now() time.Time { return o.now() }

type reflectionSignals struct {
	sentiment SentimentResult
	wants     []string
	integrity *IntegrityDeltas
}

// ProcessReflection runs one reflection through every engine, issues the next
// task and updates snap in place. LLM failures degrade to fallbacks; only
// state encoding errors are returned.
func (o *Orchestrator) ProcessReflection(ctx context.Context, userID, text string, snap *snapshot.Snapshot) (*ReflectionResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:    &userID,
		Component: "forest.brain.orchestrator",
	})
	span := logger.StartSpan(ctx, "brain.process_reflection")
	defer span.End()
	ctx = span.Context()

	now := o.now()
	slog.InfoContext(ctx, "processing reflection", "input_length", len(text))

	st, err := LoadStates(snap, o.archetypes)
	if err != nil {
		slog.WarnContext(ctx, "some component states could not be loaded, using defaults", "error", err)
	}

	snap.WitheringLevel = withering.Update(withering.Input{
		Level:        snap.WitheringLevel,
		Path:         snap.CurrentPath,
		LastActivity: snap.LastActivity(),
		Backlog:      snap.TaskBacklog,
		Now:          now,
	})

	sig := o.analyze(ctx, text, snap, st)

	score := sig.sentiment.FinalScore
	snap.Capacity = domain.Clamp01(snap.Capacity + SentimentNudge*score)
	snap.ShadowScore = domain.Clamp01(snap.ShadowScore - SentimentNudge*score)
	snap.ReflectionContext.RecentIntensity = math.Abs(score)

	prevResonance := harmonic.ComputeResonance(harmonicState(snap))
	lex := st.Shadow.AnalyzeAt(text, &shadow.Context{
		Capacity:       snap.Capacity,
		ResonanceTheme: prevResonance.Theme,
		Sentiment:      &score,
	}, now)
	if lex.Score > 0 {
		snap.ShadowScore = domain.Clamp01((snap.ShadowScore + lex.Score) / 2)
	}

	st.Consequence.UpdateFromReflection(text)
	st.Consequence.ApplyDeadlinePenalties(snap.CurrentPath, deadline.OverdueCount(snap.TaskBacklog, now))

	rel := relational.AnalyzeReflection(text)
	snap.RelationshipIndex = domain.Clamp01(snap.RelationshipIndex + rel.Net())
	gestures := o.relational.Tend(ctx, text, rel, snap, st)

	if sig.integrity != nil {
		st.Integrity.Apply(*sig.integrity, now)
	}
	if added := MergeWants(snap.WantsCache, sig.wants); len(added) > 0 {
		slog.DebugContext(ctx, "new wants recorded", "wants", added)
	}

	st.DevIndex.BaselineFromReflection(text)

	patterns := pattern.New(st.Pattern).Analyze(pattern.Input{
		Reflections: append(reflectionTexts(snap), text),
		Tasks:       taskRecords(snap, now),
		ShadowScore: snap.ShadowScore,
		Capacity:    snap.Capacity,
	})

	st.Archetypes.Update(archetype.State{XP: snap.XP, Capacity: snap.Capacity, ShadowScore: snap.ShadowScore})
	influence := st.Archetypes.Influence()

	snap.ReflectionContext.Themes = themes(lex, patterns)
	snap.ReflectionContext.RecentInsight = logger.Truncate(text, insightMaxChars)
	snap.AppendReflection(snapshot.ReflectionEntry{
		Text:           text,
		SentimentScore: score,
		ShadowScore:    snap.ShadowScore,
		Timestamp:      now.UTC(),
	})

	next := o.tasks.NextStep(taskengine.Input{
		Tree:            st.ActiveTree(snap),
		XP:              snap.XP,
		Capacity:        &snap.Capacity,
		Tier:            snap.CurrentTier,
		DevIndex:        st.DevIndex.Snapshot(),
		Patterns:        patterns,
		RecentIntensity: snap.ReflectionContext.RecentIntensity,
	})
	snap.Magnitude = next.BaseTask.Magnitude
	snap.Resistance = resistance.Compute(snap.ShadowScore, snap.Capacity, st.Momentum.Value, snap.Magnitude)

	hs := harmonicState(snap)
	route := harmonic.RouteHarmony(harmonic.Silent(hs, harmonic.DefaultWeights()))
	resonance := harmonic.ComputeResonance(hs)

	out, arbErr := o.arbiter.Respond(ctx, ArbiterInput{
		Reflection:    text,
		History:       snap.RecentTurns(HistoryTurns),
		Context:       PruneContext(snap),
		BaseTask:      next.BaseTask,
		Style:         influence.TransformationStyle,
		MemoryContext: st.Flow.LatestContext(),
	})
	if arbErr != nil {
		slog.WarnContext(ctx, "arbiter unavailable, issuing base task", "error", arbErr)
	}
	task := out.Task

	snap.AppendTurns(
		snapshot.Turn{Role: llm.RoleUser, Content: text},
		snapshot.Turn{Role: llm.RoleAssistant, Content: out.Narrative},
	)

	snap.TaskBacklog = append(snap.TaskBacklog, task)
	o.scheduleDeadlines(ctx, snap)
	task = snap.TaskBacklog[len(snap.TaskBacklog)-1]

	snap.SetLastActivity(now)
	if err := snap.SaveComponent(snapshot.KeyLastIssuedTask, task.ID); err != nil {
		return nil, err
	}

	challenge := o.checkMastery(ctx, snap, st, now)
	offering := st.Reward.Offer(snap.WantsCache, now)

	sub := st.Flow.RegisterSubmission(snap, st.activeSeedName(), now)
	if sub.Synced {
		slog.DebugContext(ctx, "snapshot flow synced")
	}

	if err := st.Save(snap); err != nil {
		span.RecordError(err)
		metrics.ReflectionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("saving component states: %w", err)
	}
	snap.Touch(now)

	outcome := "ok"
	if arbErr != nil {
		outcome = "llm_fallback"
	}
	metrics.ReflectionsTotal.WithLabelValues(outcome).Inc()
	metrics.WitheringLevel.Observe(snap.WitheringLevel)

	slog.InfoContext(ctx, "reflection processed",
		"task_id", task.ID,
		"fallback_task", next.FallbackUsed,
		"sentiment", score,
		"shadow_score", snap.ShadowScore,
		"withering_level", snap.WitheringLevel)

	return &ReflectionResult{
		Task:                 task,
		Offering:             offering,
		MasteryChallenge:     challenge,
		MagnitudeDescription: domain.DescribeMagnitude(task.Magnitude),
		ArbiterResponse:      out.Narrative,
		ResonanceTheme:       resonance.Theme,
		RoutingScore:         route.RoutingScore,
		WitheringLevel:       snap.WitheringLevel,
		RelationalActions:    gestures,
		SentimentScore:       score,
		FallbackUsed:         next.FallbackUsed,
		ContextSynced:        sub.Synced,
	}, nil
}

// analyze runs the independent LLM analyses concurrently. Each one falls
// back on its own, so none of them fails the reflection.
func (o *Orchestrator) analyze(ctx context.Context, text string, snap *snapshot.Snapshot, st *States) reflectionSignals {
	userCtx := PruneContext(snap)
	sig := reflectionSignals{sentiment: NeutralSentiment()}

	var g errgroup.Group
	g.Go(func() error {
		res, err := o.sentiment.Analyze(ctx, text, snap, st.Sentiment)
		if err != nil {
			slog.WarnContext(ctx, "sentiment analysis failed, using neutral", "error", err)
		}
		sig.sentiment = res
		return nil
	})
	g.Go(func() error {
		wants, err := o.desire.InferWants(ctx, text, DefaultMaxWants)
		if err != nil {
			slog.WarnContext(ctx, "want inference failed", "error", err)
			return nil
		}
		sig.wants = wants
		return nil
	})
	g.Go(func() error {
		d, err := o.integrity.Analyze(ctx, text, userCtx)
		if err != nil {
			slog.WarnContext(ctx, "emotional integrity analysis failed", "error", err)
			return nil
		}
		sig.integrity = &d
		return nil
	})
	if MentionsFinances(text) {
		g.Go(func() error {
			if err := o.financial.AnalyzeReflection(ctx, st.Financial, text, userCtx); err != nil {
				slog.WarnContext(ctx, "financial readiness analysis failed", "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return sig
}

func (o *Orchestrator) scheduleDeadlines(ctx context.Context, snap *snapshot.Snapshot) {
	if snap.CurrentPath == domain.PathOpen || snap.EstimatedCompletionDate == nil {
		return
	}
	tasks := make([]*domain.Task, len(snap.TaskBacklog))
	for i := range snap.TaskBacklog {
		tasks[i] = &snap.TaskBacklog[i]
	}
	if err := o.deadlines.Schedule(snap.CurrentPath, *snap.EstimatedCompletionDate, tasks, false); err != nil {
		slog.WarnContext(ctx, "soft deadlines not scheduled", "error", err)
	}
}

// checkMastery issues a challenge once per stage and records it on the trail.
func (o *Orchestrator) checkMastery(ctx context.Context, snap *snapshot.Snapshot, st *States, now time.Time) *mastery.Challenge {
	st.Mastery.CurrentStage = mastery.CurrentStage(snap.XP).Name
	ch := mastery.Check(snap.XP, now)
	if ch == nil || st.Mastery.LastChallenged == ch.Stage {
		return nil
	}
	st.Mastery.LastChallenged = ch.Stage
	recordTrailEvent(ctx, st, trail.EventWonder, "Mastery challenge: "+ch.ChallengeType,
		map[string]any{"stage": ch.Stage})
	return ch
}

func recordTrailEvent(ctx context.Context, st *States, typ trail.EventType, description string, metadata map[string]any) {
	seedName := st.activeSeedName()
	if seedName == "" {
		seedName = "Unplanted"
	}
	t := st.Trails.FindByDescription(CompositeTrail, seedName)
	if t == nil {
		t = st.Trails.Create(CompositeTrail, seedName)
	}
	if err := st.Trails.AddEvent(t.ID, typ, description, metadata, ""); err != nil {
		slog.WarnContext(ctx, "trail event not recorded", "error", err)
	}
}

// ProcessTaskCompletion settles a backlog task. An unknown task is reported
// in the result rather than as an error.
func (o *Orchestrator) ProcessTaskCompletion(ctx context.Context, in CompletionInput, snap *snapshot.Snapshot) (*CompletionResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:    &in.UserID,
		TaskID:    &in.TaskID,
		Component: "forest.brain.orchestrator",
	})
	span := logger.StartSpan(ctx, "brain.process_task_completion")
	defer span.End()
	ctx = span.Context()

	now := o.now()
	st, err := LoadStates(snap, o.archetypes)
	if err != nil {
		slog.WarnContext(ctx, "some component states could not be loaded, using defaults", "error", err)
	}

	task, ok := snap.RemoveTask(in.TaskID)
	if !ok {
		slog.WarnContext(ctx, "completed task not in backlog")
		metrics.TaskCompletionsTotal.WithLabelValues("unknown", "not_found").Inc()
		return &CompletionResult{Error: ErrTaskNotInBacklog.Error(), WitheringLevel: snap.WitheringLevel}, nil
	}

	momentum := st.Momentum.Observe(in.Success)
	st.Reward.RecordCompletion(in.Success)

	xp := 0.0
	if in.Success {
		xp = AwardXP(task, snap.ShadowScore)
		snap.XP += xp
		st.DevIndex.ApplyTaskEffect(task.RelevantIndexes, devindex.TierMultiplier(task.Tier), momentum)
		snap.WitheringLevel = withering.Relieve(snap.WitheringLevel)
		if task.HTANodeID != "" {
			markNodeCompleted(ctx, st.ActiveTree(snap), task.HTANodeID)
		}
		recordTrailEvent(ctx, st, trail.EventLightning, "Completed: "+task.Title,
			map[string]any{"task_id": task.ID, "xp_awarded": xp})
	}
	st.Mastery.CurrentStage = mastery.CurrentStage(snap.XP).Name

	snap.AppendFootprint(snapshot.Footprint{
		TaskID:      task.ID,
		Title:       task.Title,
		HTANodeID:   task.HTANodeID,
		Success:     in.Success,
		XPAwarded:   xp,
		CompletedAt: now.UTC(),
	})
	snap.SetLastActivity(now)

	if err := st.Save(snap); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("saving component states: %w", err)
	}
	snap.Touch(now)

	result := "failed"
	if in.Success {
		result = "succeeded"
		metrics.XPAwardedTotal.Add(xp)
	}
	metrics.TaskCompletionsTotal.WithLabelValues(string(task.Tier.OrDefault()), result).Inc()

	slog.InfoContext(ctx, "task completion processed",
		"success", in.Success,
		"xp_awarded", xp,
		"total_xp", snap.XP,
		"momentum", momentum)

	res := &CompletionResult{XPAwarded: xp, WitheringLevel: snap.WitheringLevel, Task: task}
	if in.Success && task.HTANodeID != "" {
		if o.rebalancer != nil {
			res.RebalanceNodeID = task.HTANodeID
		} else if err := o.Rebalance(ctx, snap, task.HTANodeID); err != nil {
			slog.WarnContext(ctx, "hta rebalance failed, keeping current tree", "node_id", task.HTANodeID, "error", err)
		}
	}

	return res, nil
}

func markNodeCompleted(ctx context.Context, tree *hta.Tree, nodeID string) {
	if tree == nil {
		return
	}
	n := tree.Find(nodeID)
	if n == nil {
		slog.WarnContext(ctx, "completed task references unknown hta node", "node_id", nodeID)
		return
	}
	n.MarkCompleted()
	tree.PropagateStatus()
}

// EnqueueRebalance queues a rebalance deferred by ProcessTaskCompletion.
// It fails with ErrNoRebalanceQueue when no queue is configured.
func (o *Orchestrator) EnqueueRebalance(ctx context.Context, userID, nodeID string) error {
	if o.rebalancer == nil {
		return ErrNoRebalanceQueue
	}
	if err := o.rebalancer.EnqueueRebalance(ctx, userID, nodeID); err != nil {
		return fmt.Errorf("queueing hta rebalance: %w", err)
	}
	slog.InfoContext(ctx, "hta rebalance queued", "node_id", nodeID)
	return nil
}

// Rebalance asks the planner to restructure the active HTA tree after
// completedNodeID was finished and stores the result in snap. A node is
// rebalanced at most once in a row, so a redelivered job is a no-op.
func (o *Orchestrator) Rebalance(ctx context.Context, snap *snapshot.Snapshot, completedNodeID string) error {
	st, err := LoadStates(snap, o.archetypes)
	if err != nil {
		return err
	}
	tree := st.ActiveTree(snap)
	if tree == nil || tree.Root == nil {
		return ErrNoHTATree
	}

	var last string
	if _, err := snap.LoadComponent(snapshot.KeyLastRebalancedNode, &last); err == nil && last == completedNodeID {
		slog.InfoContext(ctx, "hta already rebalanced for node, skipping", "node_id", completedNodeID)
		return nil
	}

	stage := mastery.CurrentStage(snap.XP).Name
	next, err := o.planner.Rebalance(ctx, tree, completedNodeID, PruneContext(snap), stage)
	if err != nil {
		return fmt.Errorf("rebalancing hta: %w", err)
	}

	st.SetActiveTree(snap, next)
	if err := st.Save(snap); err != nil {
		return fmt.Errorf("saving component states: %w", err)
	}
	if err := snap.SaveComponent(snapshot.KeyLastRebalancedNode, completedNodeID); err != nil {
		return err
	}
	snap.Touch(o.now())
	slog.InfoContext(ctx, "hta rebalanced", "node_id", completedNodeID, "nodes", len(next.Flatten()))
	return nil
}

func harmonicState(s *snapshot.Snapshot) harmonic.State {
	return harmonic.State{XP: s.XP, ShadowScore: s.ShadowScore, Capacity: s.Capacity, Magnitude: s.Magnitude}
}

func reflectionTexts(s *snapshot.Snapshot) []string {
	out := make([]string, 0, len(s.ReflectionLog)+1)
	for _, r := range s.ReflectionLog {
		out = append(out, r.Text)
	}
	return out
}

// taskRecords describes past outcomes and open backlog entries for the
// cycle detector, oldest first.
func taskRecords(s *snapshot.Snapshot, now time.Time) []pattern.TaskRecord {
	out := make([]pattern.TaskRecord, 0, len(s.TaskFootprints)+len(s.TaskBacklog))
	for _, f := range s.TaskFootprints {
		status := "completed"
		if !f.Success {
			status = "failed"
		}
		out = append(out, pattern.TaskRecord{HTANodeID: f.HTANodeID, Theme: f.Title, Status: status})
	}
	for _, t := range s.TaskBacklog {
		out = append(out, pattern.TaskRecord{
			HTANodeID: t.HTANodeID,
			Theme:     t.Title,
			Status:    "pending",
			Overdue:   deadline.HoursUntil(t, now) < 0,
		})
	}
	return out
}

func themes(lex shadow.Result, p pattern.Patterns) []string {
	out := lex.TopTags(ThemeTagCount)
	for _, k := range p.RecurringKeywords {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return slices.DeleteFunc(out, func(s string) bool { return strings.TrimSpace(s) == "" })
}
