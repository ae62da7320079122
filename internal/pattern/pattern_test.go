package pattern_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"forest.app/forest/internal/pattern"
)

var _ = Describe("Keywords", func() {
	It("drops stop words and short words, most frequent first", func() {
		kws := pattern.Keywords("I feel the deadline pressure. Deadline again, my guitar waits.", 3)
		Expect(kws).To(Equal([]string{"deadline", "pressure", "guitar"}))
	})

	It("returns nothing for empty text", func() {
		Expect(pattern.Keywords("", 5)).To(BeEmpty())
	})
})

var _ = Describe("Engine", func() {
	var e *pattern.Engine

	BeforeEach(func() {
		e = pattern.New(pattern.DefaultConfig())
	})

	It("finds recurring keywords and pairs across reflections", func() {
		p := e.Analyze(pattern.Input{
			Reflections: []string{
				"deadline stress at the office",
				"another deadline, more stress",
				"the deadline passed and stress remains",
				"a quiet garden morning",
			},
			ShadowScore: 0.5,
			Capacity:    0.5,
		})

		Expect(p.RecurringKeywords).To(Equal([]string{"deadline", "stress"}))
		Expect(p.KeywordPairs).To(ContainElement([2]string{"deadline", "stress"}))
		Expect(p.Triggers).To(BeEmpty())
	})

	It("only looks at the configured reflection window", func() {
		cfg := pattern.DefaultConfig()
		cfg.ReflectionLookback = 2
		p := pattern.New(cfg).Analyze(pattern.Input{
			Reflections: []string{"guitar", "guitar", "guitar", "piano", "violin"},
		})
		Expect(p.RecurringKeywords).To(BeEmpty())
	})

	It("detects repeated skips of the same node", func() {
		tasks := []pattern.TaskRecord{
			{HTANodeID: "n1", Status: "skipped"},
			{HTANodeID: "n1", Status: "skipped", Overdue: true},
			{HTANodeID: "n1", Status: "skipped"},
			{Theme: "Rest", Status: "failed"},
		}
		p := e.Analyze(pattern.Input{Tasks: tasks, ShadowScore: 0.9, Capacity: 0.5})

		Expect(p.TaskCycles).To(Equal([]pattern.TaskCycle{{Pattern: "Skipped hta_node:n1", Count: 3}}))
		Expect(p.Triggers).To(ConsistOf(
			"Task cycles detected while shadow score is high (0.90). Consider addressing shadow.",
		))
	})

	It("links low capacity to fatigue words", func() {
		p := e.Analyze(pattern.Input{
			Reflections: []string{"so tired and drained"},
			ShadowScore: 0.2,
			Capacity:    0.1,
		})
		Expect(p.Triggers).To(ConsistOf(
			"Low capacity (0.10) potentially linked to recent mentions of: drained, tired",
		))
	})
})

var _ = Describe("Score", func() {
	It("scores nodes by the share of recurring keywords they mention", func() {
		p := pattern.Patterns{RecurringKeywords: []string{"guitar", "practice"}}
		scores := pattern.Score(p, map[string]string{
			"a": "Practice guitar scales",
			"b": "Guitar shopping",
			"c": "Cook dinner",
		})
		Expect(scores).To(Equal(map[string]float64{"a": 1.0, "b": 0.5}))
	})

	It("is empty without recurring keywords", func() {
		Expect(pattern.Score(pattern.Patterns{}, map[string]string{"a": "x"})).To(BeEmpty())
	})
})
