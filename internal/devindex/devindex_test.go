package devindex_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"forest.app/forest/internal/devindex"
	"forest.app/forest/internal/domain"
)

var _ = Describe("Index", func() {
	var idx *devindex.Index

	BeforeEach(func() {
		idx = devindex.New()
	})

	It("starts every key at 0.5", func() {
		Expect(idx.Indexes).To(HaveLen(15))
		for _, k := range devindex.Keys {
			Expect(idx.Get(k)).To(Equal(0.5))
		}
	})

	It("nudges social gauges on positive reflections", func() {
		idx.BaselineFromReflection("I am so GRATEFUL for today")
		Expect(idx.Get("happiness")).To(BeNumerically("~", 0.51, 1e-9))
		Expect(idx.Get("charisma")).To(BeNumerically("~", 0.51, 1e-9))
		Expect(idx.Get("career")).To(Equal(0.5))

		idx.BaselineFromReflection("a neutral day")
		Expect(idx.Get("happiness")).To(BeNumerically("~", 0.51, 1e-9))
	})

	It("applies deltas to known keys only", func() {
		idx.DynamicAdjustment(map[string]float64{"health": 0.7, "luck": 0.3, "career": -0.1})
		Expect(idx.Get("health")).To(Equal(1.0))
		Expect(idx.Get("career")).To(BeNumerically("~", 0.4, 1e-9))
		Expect(idx.Indexes).NotTo(HaveKey("luck"))
	})

	DescribeTable("task effects scale with tier",
		func(tier domain.Tier, expected float64) {
			idx.ApplyTaskEffect([]string{"career"}, devindex.TierMultiplier(tier), 1.0)
			Expect(idx.Get("career")).To(BeNumerically("~", expected, 1e-9))
		},
		Entry("Bud", domain.TierBud, 0.52),
		Entry("Bloom", domain.TierBloom, 0.53),
		Entry("Blossom", domain.TierBlossom, 0.54),
		Entry("unknown tier counts as Bud", domain.Tier("Seed"), 0.52),
	)

	It("loads persisted state with clamping", func() {
		idx.Load(map[string]float64{"health": 3, "odd_risk": -1, "bogus": 0.2})
		Expect(idx.Get("health")).To(Equal(1.0))
		Expect(idx.Get("odd_risk")).To(Equal(0.0))
		Expect(idx.Snapshot()).NotTo(HaveKey("bogus"))
	})
})

var _ = Describe("Momentum", func() {
	It("moves toward recent outcomes", func() {
		m := devindex.NewMomentum()
		Expect(m.Observe(false)).To(BeNumerically("~", 0.7, 1e-9))
		Expect(m.Observe(true)).To(BeNumerically("~", 0.79, 1e-9))
	})
})
