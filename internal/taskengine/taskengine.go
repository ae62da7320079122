// Package taskengine picks the next task for the user from their HTA tree.
package taskengine

import (
	"cmp"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/hta"
	"forest.app/forest/internal/pattern"
)

const (
	DevIndexBoost   = 0.1
	PatternBoost    = 0.1
	ReflectionBoost = 0.05

	DefaultCapacity  = 0.5
	MaxDepthForNorm  = 5
	DepthWeight      = 1.0
	DefaultMagnitude = 5.0

	IntrospectivePrompt = "Reflect on how this task advances your journey."
	FallbackTitle       = "Deep Reflection Session"
	FallbackDescription = "A guided session to examine your inner journey."
)

var tierBaseMagnitude = map[domain.Tier]float64{
	domain.TierBud:     2.0,
	domain.TierBloom:   5.0,
	domain.TierBlossom: 9.0,
}

// Input is the slice of user state that drives selection.
type Input struct {
	Tree            *hta.Tree
	XP              float64
	Capacity        *float64 // nil uses DefaultCapacity
	Tier            domain.Tier
	DevIndex        map[string]float64
	Patterns        pattern.Patterns
	RecentIntensity float64
}

type Candidate struct {
	Node  *hta.Node
	Score float64
}

type Result struct {
	BaseTask     domain.Task `json:"base_task"`
	FallbackUsed bool        `json:"fallback_used"`
}

type Engine struct {
	now func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(opts ...Option) *Engine {
	e := &Engine{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Candidates returns the actionable nodes ordered by score, highest first.
// A node is actionable when it is pending or active, its dependencies are
// met and its energy and time estimates fit within capacity. Inner nodes
// compete with their children on score.
func (e *Engine) Candidates(in Input) []Candidate {
	nodes := in.Tree.Flatten()
	if len(nodes) == 0 {
		return nil
	}

	capacity := DefaultCapacity
	if in.Capacity != nil {
		capacity = *in.Capacity
	}

	texts := make(map[string]string, len(nodes))
	for _, n := range nodes {
		texts[n.ID] = n.Title + " " + n.Description
	}
	patternScores := pattern.Score(in.Patterns, texts)

	var candidates []Candidate
	for _, n := range nodes {
		if n.Status != hta.StatusPending && n.Status != hta.StatusActive {
			continue
		}
		if !in.Tree.DependenciesMet(n) {
			continue
		}
		if n.EnergyCost() > capacity {
			continue
		}

		score := n.Priority
		for _, dim := range n.RelevantIndexes {
			dev, ok := in.DevIndex[dim]
			if !ok {
				dev = 0.5
			}
			score += DevIndexBoost * (1 - dev)
		}
		score += PatternBoost * patternScores[n.ID]
		score += ReflectionBoost * in.RecentIntensity

		candidates = append(candidates, Candidate{Node: n, Score: score})
	}

	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return candidates
}

// NextStep builds the next task from the best candidate, or a reflection
// session when nothing is actionable.
func (e *Engine) NextStep(in Input) Result {
	now := e.now()
	tier := in.Tier.OrDefault()

	task := domain.Task{
		ID:                  TaskID(in.XP, now),
		Tier:                tier,
		IntrospectivePrompt: IntrospectivePrompt,
		Metadata:            map[string]any{},
		CreatedAt:           now,
	}

	candidates := e.Candidates(in)
	fallback := len(candidates) == 0
	if fallback {
		task.Title = FallbackTitle
		task.Description = FallbackDescription
		slog.Debug("no actionable hta node, using reflection fallback")
	} else {
		best := candidates[0]
		task.Title = best.Node.Title
		task.Description = best.Node.Description
		task.HTANodeID = best.Node.ID
		task.RelevantIndexes = slices.Clone(best.Node.RelevantIndexes)
		task.Metadata["hta_depth"] = in.Tree.Depths()[best.Node.ID]
		slog.Debug("selected hta node", "node_id", best.Node.ID, "score", best.Score, "candidates", len(candidates))
	}

	task.Magnitude = Magnitude(tier, task.HTADepth())
	return Result{BaseTask: task, FallbackUsed: fallback}
}

// Magnitude combines the tier base with the normalized HTA depth. A negative
// depth means unknown and adds nothing.
func Magnitude(tier domain.Tier, depth int) float64 {
	mag, ok := tierBaseMagnitude[tier]
	if !ok {
		mag = DefaultMagnitude
	}
	if depth >= 0 {
		mag += float64(min(depth, MaxDepthForNorm)) / MaxDepthForNorm * DepthWeight
	}
	return domain.Clamp(mag, domain.MagnitudeMin, domain.MagnitudeMax)
}

// TaskID derives a short id from the user's XP and the issue time.
func TaskID(xp float64, at time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%v-%s", xp, at.UTC().Format(time.RFC3339Nano))))
	return hex.EncodeToString(sum[:])[:8]
}
