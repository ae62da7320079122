package service_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/model"
	"forest.app/forest/internal/service"
	"forest.app/forest/internal/snapshot"
	"forest.app/forest/internal/trigger"
)

var _ = Describe("CommandService", func() {
	var (
		ctx         context.Context
		snapshots   *mockSnapshotStore
		taskEvents  *mockTaskEventStore
		reflections *mockReflectionEventStore
		orch        *mockOrchestrator
		svc         service.CommandService
	)

	BeforeEach(func() {
		ctx = context.Background()
		snapshots = &mockSnapshotStore{}
		taskEvents = &mockTaskEventStore{}
		reflections = &mockReflectionEventStore{}
		orch = &mockOrchestrator{}
		tx := passthroughTx(&mockStoreProvider{snapshots: snapshots, taskEvents: taskEvents, reflections: reflections})
		svc = service.NewCommandService(snapshots, tx, orch)
	})

	Context("before onboarding is complete", func() {
		It("reports a missing snapshot", func() {
			_, err := svc.Process(ctx, "ghost", "hello")
			Expect(err).To(MatchError(service.ErrSnapshotNotFound))
		})

		It("asks for the goal when none is set", func() {
			snapshots.returning(1, snapshot.New(orch.Now()))

			_, err := svc.Process(ctx, "user-1", "hello")
			Expect(err).To(MatchError(service.ErrGoalNotSet))
		})

		It("asks for context when the goal is set", func() {
			snap := snapshot.New(orch.Now())
			snap.ActivatedState.GoalSet = true
			snapshots.returning(1, snap)

			_, err := svc.Process(ctx, "user-1", "hello")
			Expect(err).To(MatchError(service.ErrNotActivated))
			Expect(orch.reflectCalls).To(BeZero())
		})
	})

	Context("when activated", func() {
		BeforeEach(func() {
			snap := activatedSnapshot()
			snap.Capacity = 0.6
			snapshots.returning(3, snap)
		})

		It("answers trigger phrases without processing a reflection", func() {
			orch.triggerFn = func(context.Context, *snapshot.Snapshot, string) (trigger.Result, bool, error) {
				return trigger.Result{Triggered: true, Action: trigger.ActionShowTodo, Message: "No tasks found."}, true, nil
			}

			res, err := svc.Process(ctx, "user-1", "forest, show me the running to-do list")

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trigger).NotTo(BeNil())
			Expect(res.Trigger.Message).To(Equal("No tasks found."))
			Expect(res.Reflection).To(BeNil())
			Expect(orch.reflectCalls).To(BeZero())
			Expect(reflections.created).To(BeEmpty())
		})

		It("processes the reflection and logs both events", func() {
			orch.reflectFn = func(_ context.Context, userID, text string, snap *snapshot.Snapshot) (*brain.ReflectionResult, error) {
				Expect(userID).To(Equal("user-1"))
				snap.XP = 5
				return &brain.ReflectionResult{
					Task:           domain.Task{ID: "task-9", Title: "Tune the strings", HTANodeID: "leaf-1"},
					SentimentScore: 0.4,
					WitheringLevel: 0.1,
				}, nil
			}

			res, err := svc.Process(ctx, "user-1", "I practiced today")

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reflection.Task.ID).To(Equal("task-9"))
			Expect(res.ReflectionID).NotTo(BeEmpty())
			Expect(res.WitheringLevel).To(Equal(0.1))

			Expect(reflections.created).To(HaveLen(1))
			refl := reflections.created[0]
			Expect(refl.ReflectionID).To(Equal(res.ReflectionID))
			Expect(refl.EventType).To(Equal(string(model.ReflectionEventProcessed)))
			Expect(*refl.SentimentScore).To(Equal(0.4))
			Expect(*refl.CapacityAtEvent).To(Equal(0.6))
			var meta map[string]any
			Expect(json.Unmarshal(refl.EventMetadata, &meta)).To(Succeed())
			Expect(meta).To(HaveKeyWithValue("input_length", BeNumerically("==", len("I practiced today"))))

			Expect(taskEvents.created).To(HaveLen(1))
			ev := taskEvents.created[0]
			Expect(ev.TaskID).To(Equal("task-9"))
			Expect(ev.EventType).To(Equal(string(model.TaskEventGenerated)))
			Expect(*ev.LinkedHTANodeID).To(Equal("leaf-1"))
			Expect(json.Unmarshal(ev.EventMetadata, &meta)).To(Succeed())
			Expect(meta).To(HaveKeyWithValue("title", "Tune the strings"))

			Expect(snapshots.updated).To(HaveLen(1))
			Expect(snapshots.saved().XP).To(Equal(5.0))
		})

		It("fails when the event log cannot be written", func() {
			orch.reflectFn = func(context.Context, string, string, *snapshot.Snapshot) (*brain.ReflectionResult, error) {
				return &brain.ReflectionResult{Task: domain.Task{ID: "task-9"}}, nil
			}
			reflections.createFn = func(context.Context, *model.ReflectionEventLog) error {
				return errors.New("disk full")
			}

			_, err := svc.Process(ctx, "user-1", "hello")

			Expect(err).To(MatchError(ContainSubstring("disk full")))
			Expect(snapshots.updated).To(BeEmpty())
		})
	})
})
