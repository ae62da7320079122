package brain_test

import (
	"context"
	"time"

	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/seed"
	"forest.app/forest/internal/snapshot"
	"forest.app/forest/internal/trigger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("HandleTrigger", func() {
	var (
		ctx     context.Context
		mockLLM *mockLLMClient
		orch    *brain.Orchestrator
		snap    *snapshot.Snapshot
		now     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		mockLLM = &mockLLMClient{}
		orch = brain.NewOrchestrator(mockLLM, nil, brain.WithClock(func() time.Time { return now }))
		snap = snapshot.New(now)
	})

	It("ignores ordinary reflections", func() {
		_, ok, err := orch.HandleTrigger(ctx, snap, "today I practiced scales")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("lists the backlog without calling the LLM", func() {
		snap.TaskBacklog = []domain.Task{{ID: "t1", Title: "Rent a cello"}}

		res, ok, err := orch.HandleTrigger(ctx, snap, "  Forest, show me the running to-do list ")

		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(res.Action).To(Equal(trigger.ActionShowTodo))
		Expect(res.Message).To(ContainSubstring("ID: t1, Title: Rent a cello"))
		Expect(mockLLM.calls()).To(BeZero())
	})

	It("stores a compressed snapshot on activation", func() {
		snap.XP = 42

		res, ok, err := orch.HandleTrigger(ctx, snap, "activate the forest")

		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(res.Message).To(ContainSubstring("XP: 42"))

		flow := snapshot.NewFlow()
		found, err := snap.LoadComponent(snapshot.KeySnapshotFlow, flow)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(flow.Records).To(HaveLen(1))
		Expect(flow.Counter).To(BeZero())
	})
})

var _ = Describe("Seeds", func() {
	var (
		ctx  context.Context
		orch *brain.Orchestrator
		snap *snapshot.Snapshot
	)

	BeforeEach(func() {
		ctx = context.Background()
		now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		orch = brain.NewOrchestrator(&mockLLMClient{}, nil, brain.WithClock(func() time.Time { return now }))
		snap = snapshot.New(now)
	})

	It("plants and evolves a seed", func() {
		s, err := orch.PlantSeed(ctx, snap, "learn pottery", "craft", seed.Context{})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name).To(Equal(seed.PlantedName("learn pottery")))

		Expect(orch.EvolveSeed(ctx, snap, s.ID, seed.EvolutionExpansion, "glazing")).To(Succeed())

		m := seed.NewManager()
		_, err = snap.LoadComponent(snapshot.KeySeedManager, m)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Get(s.ID).Description).To(Equal("learn pottery\nExpanded: glazing"))
	})

	It("reports unknown seeds", func() {
		err := orch.EvolveSeed(ctx, snap, "missing", seed.EvolutionReframe, "x")
		Expect(err).To(MatchError(seed.ErrSeedNotFound))
	})
})
