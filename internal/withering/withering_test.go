package withering_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/withering"
)

var _ = Describe("Update", func() {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	DescribeTable("idle growth by path",
		func(path domain.Path, expected float64) {
			got := withering.Update(withering.Input{
				Path:         path,
				LastActivity: now.Add(-10 * time.Hour),
				Now:          now,
			})
			Expect(got).To(BeNumerically("~", expected, 1e-9))
		},
		Entry("structured", domain.PathStructured, 0.25*0.98),
		Entry("blended", domain.PathBlended, 0.15*0.98),
		Entry("hybrid reads as blended", domain.Path("hybrid"), 0.15*0.98),
		Entry("open never withers from idleness", domain.PathOpen, 0.0),
		Entry("unknown path uses the structured rate", domain.Path("wandering"), 0.25*0.98),
	)

	It("adds pressure from the most overdue task", func() {
		got := withering.Update(withering.Input{
			Level:   0.1,
			Path:    domain.PathStructured,
			Backlog: []domain.Task{{SoftDeadline: "2025-03-01T02:00:00Z"}, {SoftDeadline: "2025-03-01T07:00:00Z"}},
			Now:     now,
		})
		Expect(got).To(BeNumerically("~", (0.1+0.012*10)*0.98, 1e-9))
	})

	It("ignores overdue tasks on the open path", func() {
		got := withering.Update(withering.Input{
			Level:   0.5,
			Path:    domain.PathOpen,
			Backlog: []domain.Task{{SoftDeadline: "2025-02-01T00:00:00Z"}},
			Now:     now,
		})
		Expect(got).To(BeNumerically("~", 0.49, 1e-9))
	})

	It("saturates at the decayed maximum", func() {
		got := withering.Update(withering.Input{
			Level:        0.9,
			Path:         domain.PathStructured,
			LastActivity: now.Add(-100 * time.Hour),
			Now:          now,
		})
		Expect(got).To(BeNumerically("~", 0.98, 1e-9))
	})

	It("ignores activity timestamps in the future", func() {
		got := withering.Update(withering.Input{
			Level:        0.5,
			Path:         domain.PathStructured,
			LastActivity: now.Add(time.Hour),
			Now:          now,
		})
		Expect(got).To(BeNumerically("~", 0.49, 1e-9))
	})
})

var _ = Describe("Relieve", func() {
	It("subtracts the completion relief and floors at zero", func() {
		Expect(withering.Relieve(0.5)).To(BeNumerically("~", 0.35, 1e-9))
		Expect(withering.Relieve(0.1)).To(Equal(0.0))
	})
})
