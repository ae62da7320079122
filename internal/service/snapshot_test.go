package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"forest.app/forest/internal/model"
	"forest.app/forest/internal/service"
)

var _ = Describe("SnapshotService", func() {
	var (
		ctx         context.Context
		snapshots   *mockSnapshotStore
		taskEvents  *mockTaskEventStore
		reflections *mockReflectionEventStore
		svc         service.SnapshotService
	)

	BeforeEach(func() {
		ctx = context.Background()
		snapshots = &mockSnapshotStore{}
		taskEvents = &mockTaskEventStore{}
		reflections = &mockReflectionEventStore{}
		svc = service.NewSnapshotService(snapshots, taskEvents, reflections)
	})

	It("decodes the latest snapshot", func() {
		snap := activatedSnapshot()
		snap.XP = 12
		snapshots.returning(1, snap)

		got, err := svc.Latest(ctx, "user-1")

		Expect(err).NotTo(HaveOccurred())
		Expect(got.XP).To(Equal(12.0))
		Expect(got.ActivatedState.Activated).To(BeTrue())
	})

	It("maps a missing row to ErrSnapshotNotFound", func() {
		_, err := svc.Latest(ctx, "ghost")
		Expect(err).To(MatchError(service.ErrSnapshotNotFound))
	})

	It("lists task events", func() {
		taskEvents.listFn = func(_ context.Context, taskID string) ([]model.TaskEventLog, error) {
			return []model.TaskEventLog{{TaskID: taskID, EventType: "generated"}}, nil
		}

		logs, err := svc.TaskEvents(ctx, "t1")

		Expect(err).NotTo(HaveOccurred())
		Expect(logs).To(HaveLen(1))
		Expect(logs[0].TaskID).To(Equal("t1"))
	})
})
