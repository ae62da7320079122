package brain_test

import (
	"context"
	"time"

	"forest.app/forest/common/llm"
	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/hta"
	"forest.app/forest/internal/snapshot"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func llmNode(id, title string, children ...map[string]any) map[string]any {
	if children == nil {
		children = []map[string]any{}
	}
	return map[string]any{
		"id":               id,
		"title":            title,
		"description":      title + " in detail",
		"priority":         0.5,
		"depends_on":       []string{},
		"estimated_energy": "low",
		"estimated_time":   "low",
		"children":         children,
	}
}

var _ = Describe("HTAPlanner", func() {
	var (
		ctx     context.Context
		mockLLM *mockLLMClient
		planner *brain.HTAPlanner
		root    *hta.Node
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockLLM = &mockLLMClient{}
		planner = brain.NewHTAPlanner(mockLLM)
		root = hta.NewNode("root-1", "Learn the cello", "Play a simple piece", 1)
	})

	Describe("Skeleton", func() {
		It("restores the root id the LLM changed", func() {
			mockLLM.chatFn = bySchema(map[string]any{
				"hta_skeleton": map[string]any{
					"hta_root": llmNode("made-up", "Learn the cello",
						llmNode("a", "Rent a cello"),
						llmNode("b", "Find a teacher")),
				},
			})

			tree, err := planner.Skeleton(ctx, root, "I have never played", nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(tree.Root.ID).To(Equal("root-1"))
			Expect(tree.Root.Children).To(HaveLen(2))
			Expect(tree.Find("a").Title).To(Equal("Rent a cello"))
		})

		It("gives duplicate node ids fresh values", func() {
			mockLLM.chatFn = bySchema(map[string]any{
				"hta_skeleton": map[string]any{
					"hta_root": llmNode("root-1", "Learn the cello",
						llmNode("x", "Rent a cello"),
						llmNode("x", "Find a teacher")),
				},
			})

			tree, err := planner.Skeleton(ctx, root, "", nil)

			Expect(err).NotTo(HaveOccurred())
			ids := map[string]bool{}
			for _, n := range tree.Flatten() {
				Expect(ids).NotTo(HaveKey(n.ID))
				ids[n.ID] = true
			}
			Expect(ids).To(HaveLen(3))
		})

		It("rejects a response without a root", func() {
			mockLLM.chatFn = bySchema(map[string]any{"hta_skeleton": map[string]any{"hta_root": nil}})

			_, err := planner.Skeleton(ctx, root, "", nil)

			Expect(err).To(MatchError(brain.ErrInvalidHTA))
		})
	})

	Describe("Rebalance", func() {
		It("marks the completed node and carries linked tasks over", func() {
			current := hta.NewTree(root)
			done := hta.NewNode("a", "Rent a cello", "", 0.5)
			done.LinkTask("task-1")
			Expect(current.Add("root-1", done)).To(Succeed())

			mockLLM.chatFn = bySchema(map[string]any{
				"hta_rebalance": map[string]any{
					"hta_root": llmNode("other-root", "Learn the cello",
						llmNode("a", "Rent a cello"),
						llmNode("c", "Practice scales")),
				},
			})

			tree, err := planner.Rebalance(ctx, current, "a", nil, "Awakening")

			Expect(err).NotTo(HaveOccurred())
			Expect(tree.Root.ID).To(Equal("root-1"))
			Expect(tree.Find("a").Status).To(Equal(hta.StatusCompleted))
			Expect(tree.Find("a").LinkedTasks).To(ConsistOf("task-1"))
			Expect(tree.Find("c").Status).To(Equal(hta.StatusPending))
		})

		It("refuses an empty tree", func() {
			_, err := planner.Rebalance(ctx, nil, "a", nil, "Awakening")

			Expect(err).To(MatchError(hta.ErrEmptyTree))
			Expect(mockLLM.calls()).To(Equal(0))
		})
	})
})

var _ = Describe("Arbiter", func() {
	var (
		ctx      context.Context
		mockLLM  *mockLLMClient
		arbiter  *brain.Arbiter
		baseTask domain.Task
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockLLM = &mockLLMClient{}
		arbiter = brain.NewArbiter(mockLLM)
		baseTask = domain.Task{
			ID:        "task_1",
			Title:     "Rent a cello",
			Tier:      domain.TierBloom,
			Magnitude: 5,
			HTANodeID: "a",
		}
	})

	It("may only reword the task", func() {
		mockLLM.chatFn = bySchema(map[string]any{
			"arbiter_response": map[string]any{
				"task":      map[string]any{"title": "Visit the music shop", "description": "Try three cellos."},
				"narrative": "The strings are waiting.",
			},
		})

		out, err := arbiter.Respond(ctx, brain.ArbiterInput{Reflection: "I am nervous", BaseTask: baseTask})

		Expect(err).NotTo(HaveOccurred())
		Expect(out.Narrative).To(Equal("The strings are waiting."))
		Expect(out.Task.Title).To(Equal("Visit the music shop"))
		Expect(out.Task.Description).To(Equal("Try three cellos."))
		Expect(out.Task.ID).To(Equal("task_1"))
		Expect(out.Task.Tier).To(Equal(domain.TierBloom))
		Expect(out.Task.HTANodeID).To(Equal("a"))
	})

	It("sends at most six history turns", func() {
		var historyLen int
		mockLLM.chatFn = func(_ context.Context, req llm.Request, result any) (*llm.Response, error) {
			historyLen = len(req.History)
			return respond(map[string]any{"task": map[string]any{}, "narrative": "ok"}, result)
		}
		turns := make([]snapshot.Turn, 10)
		for i := range turns {
			turns[i] = snapshot.Turn{Role: "user", Content: "hello"}
		}

		_, err := arbiter.Respond(ctx, brain.ArbiterInput{History: turns, BaseTask: baseTask})

		Expect(err).NotTo(HaveOccurred())
		Expect(historyLen).To(Equal(brain.HistoryTurns))
	})

	It("falls back to the base task offline", func() {
		out, err := arbiter.Respond(ctx, brain.ArbiterInput{Reflection: "hi", BaseTask: baseTask})

		Expect(err).To(HaveOccurred())
		Expect(out.Task).To(Equal(baseTask))
		Expect(out.Narrative).To(Equal(brain.OfflineNarrative))
	})
})

var _ = Describe("XP", func() {
	DescribeTable("AwardXP",
		func(tier domain.Tier, shadow, want float64) {
			Expect(brain.AwardXP(domain.Task{Tier: tier}, shadow)).To(Equal(want))
		},
		Entry("bud", domain.TierBud, 0.9, 10.0),
		Entry("bloom", domain.TierBloom, 0.5, 20.0),
		Entry("bloom in shadow", domain.TierBloom, 0.8, 25.0),
		Entry("blossom in shadow", domain.TierBlossom, 0.71, 35.0),
		Entry("unknown tier", domain.Tier("Seedling"), 0.9, 10.0),
	)

	It("prunes the context sent to prompts", func() {
		snap := snapshot.New(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
		snap.LastRitualMode = ""
		Expect(snap.SaveComponent(snapshot.KeyXPMastery, brain.MasteryState{CurrentStage: "Awakening"})).To(Succeed())

		ctx := brain.PruneContext(snap)

		Expect(ctx).To(HaveKeyWithValue("xp_stage", "Awakening"))
		Expect(ctx).To(HaveKeyWithValue("current_path", "structured"))
		Expect(ctx).NotTo(HaveKey("last_ritual_mode"))
		Expect(ctx).NotTo(HaveKey("dev_index"))
	})
})
