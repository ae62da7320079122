// Package pattern finds recurring themes in reflections and task history.
package pattern

import (
	"cmp"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

type Config struct {
	ReflectionLookback     int     `json:"reflection_lookback"`
	TaskLookback           int     `json:"task_lookback"`
	MinKeywordOccurrence   int     `json:"min_keyword_occurrence"`
	MinCooccurrence        int     `json:"min_cooccurrence"`
	MinTaskCycleOccurrence int     `json:"min_task_cycle_occurrence"`
	HighShadowThreshold    float64 `json:"high_shadow_threshold"`
	LowCapacityThreshold   float64 `json:"low_capacity_threshold"`
}

func DefaultConfig() Config {
	return Config{
		ReflectionLookback:     10,
		TaskLookback:           20,
		MinKeywordOccurrence:   3,
		MinCooccurrence:        2,
		MinTaskCycleOccurrence: 3,
		HighShadowThreshold:    0.7,
		LowCapacityThreshold:   0.3,
	}
}

// TaskRecord is the part of a backlog entry the cycle detector looks at.
type TaskRecord struct {
	HTANodeID string
	Theme     string
	Status    string
	Overdue   bool
}

type Input struct {
	Reflections []string // oldest first
	Tasks       []TaskRecord
	ShadowScore float64
	Capacity    float64
}

type TaskCycle struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
}

type Patterns struct {
	RecurringKeywords []string    `json:"recurring_reflection_keywords"`
	KeywordPairs      [][2]string `json:"recurring_keyword_pairs"`
	TaskCycles        []TaskCycle `json:"potential_task_cycles"`
	Triggers          []string    `json:"potential_triggers"`
}

var (
	wordRe = regexp.MustCompile(`\b\w{3,}\b`)

	stressKeywords  = []string{"anxiety", "argument", "conflict", "deadline", "failure", "overwhelm", "pressure", "stress"}
	fatigueKeywords = []string{"burnout", "drained", "exhausted", "overwhelmed", "tired"}
)

type Engine struct {
	Config Config
}

func New(cfg Config) *Engine {
	return &Engine{Config: cfg}
}

// Keywords returns up to n of the most frequent non stop words of three or
// more letters. Ties keep first-appearance order.
func Keywords(text string, n int) []string {
	words := wordRe.FindAllString(strings.ToLower(text), -1)

	counts := make(map[string]int)
	var order []string
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(counts[b], counts[a])
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// Analyze inspects recent reflections and tasks for recurring keywords,
// repeated task failures and likely triggers of the current state.
func (e *Engine) Analyze(in Input) Patterns {
	p := Patterns{
		RecurringKeywords: []string{},
		KeywordPairs:      [][2]string{},
		TaskCycles:        []TaskCycle{},
		Triggers:          []string{},
	}

	seen := e.analyzeReflections(in.Reflections, &p)
	e.analyzeTasks(in.Tasks, &p)
	e.analyzeTriggers(in, seen, &p)

	slog.Debug("pattern analysis complete",
		"recurring_keywords", len(p.RecurringKeywords),
		"keyword_pairs", len(p.KeywordPairs),
		"task_cycles", len(p.TaskCycles),
		"triggers", len(p.Triggers))
	return p
}

func (e *Engine) analyzeReflections(reflections []string, p *Patterns) map[string]bool {
	recent := tail(reflections, e.Config.ReflectionLookback)

	var sets [][]string
	for _, r := range recent {
		if strings.TrimSpace(r) == "" {
			continue
		}
		sets = append(sets, Keywords(r, 10))
	}

	seen := make(map[string]bool)
	counts := make(map[string]int)
	pairs := make(map[[2]string]int)
	for _, kws := range sets {
		for i, a := range kws {
			seen[a] = true
			counts[a]++
			for _, b := range kws[i+1:] {
				pair := [2]string{a, b}
				if b < a {
					pair = [2]string{b, a}
				}
				pairs[pair]++
			}
		}
	}

	for kw, n := range counts {
		if n >= e.Config.MinKeywordOccurrence {
			p.RecurringKeywords = append(p.RecurringKeywords, kw)
		}
	}
	slices.Sort(p.RecurringKeywords)

	for pair, n := range pairs {
		if n >= e.Config.MinCooccurrence {
			p.KeywordPairs = append(p.KeywordPairs, pair)
		}
	}
	slices.SortFunc(p.KeywordPairs, func(a, b [2]string) int {
		return cmp.Or(cmp.Compare(a[0], b[0]), cmp.Compare(a[1], b[1]))
	})
	return seen
}

func (e *Engine) analyzeTasks(tasks []TaskRecord, p *Patterns) {
	type tally struct{ skipped, failed, overdue int }

	groups := make(map[string]*tally)
	for _, t := range tail(tasks, e.Config.TaskLookback) {
		key := "theme:" + strings.ToLower(cmp.Or(t.Theme, "Unknown"))
		if t.HTANodeID != "" {
			key = "hta_node:" + t.HTANodeID
		}
		g, ok := groups[key]
		if !ok {
			g = &tally{}
			groups[key] = g
		}
		switch strings.ToLower(t.Status) {
		case "skipped":
			g.skipped++
		case "failed":
			g.failed++
		}
		if t.Overdue {
			g.overdue++
		}
	}

	threshold := e.Config.MinTaskCycleOccurrence
	for key, g := range groups {
		if g.skipped >= threshold {
			p.TaskCycles = append(p.TaskCycles, TaskCycle{Pattern: "Skipped " + key, Count: g.skipped})
		}
		if g.failed >= threshold {
			p.TaskCycles = append(p.TaskCycles, TaskCycle{Pattern: "Failed " + key, Count: g.failed})
		}
		if g.overdue >= threshold {
			p.TaskCycles = append(p.TaskCycles, TaskCycle{Pattern: "Overdue " + key, Count: g.overdue})
		}
	}
	slices.SortFunc(p.TaskCycles, func(a, b TaskCycle) int {
		return cmp.Compare(a.Pattern, b.Pattern)
	})
}

func (e *Engine) analyzeTriggers(in Input, seen map[string]bool, p *Patterns) {
	highShadow := in.ShadowScore > e.Config.HighShadowThreshold
	lowCapacity := in.Capacity < e.Config.LowCapacityThreshold

	if highShadow {
		if found := intersect(seen, stressKeywords); len(found) > 0 {
			p.Triggers = append(p.Triggers, fmt.Sprintf(
				"High shadow (%.2f) potentially linked to recent mentions of: %s", in.ShadowScore, strings.Join(found, ", ")))
		}
	}
	if lowCapacity {
		if found := intersect(seen, fatigueKeywords); len(found) > 0 {
			p.Triggers = append(p.Triggers, fmt.Sprintf(
				"Low capacity (%.2f) potentially linked to recent mentions of: %s", in.Capacity, strings.Join(found, ", ")))
		}
	}
	if len(p.TaskCycles) > 0 {
		if highShadow {
			p.Triggers = append(p.Triggers, fmt.Sprintf(
				"Task cycles detected while shadow score is high (%.2f). Consider addressing shadow.", in.ShadowScore))
		}
		if lowCapacity {
			p.Triggers = append(p.Triggers, fmt.Sprintf(
				"Task cycles detected while capacity is low (%.2f). Consider simpler tasks or rest.", in.Capacity))
		}
	}
	slices.Sort(p.Triggers)
}

// Score returns, per node id, the share of recurring keywords that occur in
// the node's text. Nodes without a match are absent.
func Score(p Patterns, nodes map[string]string) map[string]float64 {
	scores := make(map[string]float64)
	if len(p.RecurringKeywords) == 0 {
		return scores
	}
	for id, text := range nodes {
		words := make(map[string]bool)
		for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
			words[w] = true
		}
		hits := 0
		for _, kw := range p.RecurringKeywords {
			if words[kw] {
				hits++
			}
		}
		if hits > 0 {
			scores[id] = float64(hits) / float64(len(p.RecurringKeywords))
		}
	}
	return scores
}

func intersect(seen map[string]bool, keywords []string) []string {
	var found []string
	for _, k := range keywords {
		if seen[k] {
			found = append(found, k)
		}
	}
	return found
}

func tail[T any](s []T, n int) []T {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
