package reward_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"forest.app/forest/internal/reward"
)

var _ = Describe("Index", func() {
	var (
		idx *reward.Index
		at  time.Time
	)

	BeforeEach(func() {
		idx = reward.New()
		at = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	})

	It("builds readiness from successful completions", func() {
		idx.RecordCompletion(true)
		Expect(idx.Readiness).To(BeNumerically("~", 0.6, 1e-9))
		idx.RecordCompletion(false)
		Expect(idx.Readiness).To(BeNumerically("~", 0.6, 1e-9))
	})

	It("does not offer before readiness builds up", func() {
		Expect(idx.Offer(map[string]float64{"travel": 0.9}, at)).To(BeNil())
	})

	It("does not offer without wants", func() {
		idx.Readiness = 0.9
		Expect(idx.Offer(nil, at)).To(BeNil())
	})

	It("offers the strongest wants and spends readiness", func() {
		idx.Readiness = 0.8
		wants := map[string]float64{"travel": 0.9, "music": 0.6, "garden": 0.3}

		o := idx.Offer(wants, at)
		Expect(o).NotTo(BeNil())
		Expect(o.Desires).To(Equal([]string{"travel", "music"}))
		Expect(o.Suggestions).To(HaveLen(3))
		Expect(o.Suggestions[0]).To(ContainSubstring("travel"))
		Expect(o.Suggestions[1]).To(ContainSubstring("music"))
		Expect(idx.Readiness).To(BeNumerically("~", 0.5, 1e-9))
		Expect(idx.DesireSignal).To(BeNumerically("~", 0.75, 1e-9))
		Expect(wants["travel"]).To(Equal(1.0))
		Expect(wants["garden"]).To(Equal(0.3))
	})
})
