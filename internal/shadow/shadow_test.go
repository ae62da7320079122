package shadow_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"forest.app/forest/internal/shadow"
)

var _ = Describe("Engine", func() {
	var e *shadow.Engine

	BeforeEach(func() {
		e = shadow.New()
	})

	It("scores lexicon terms by length-normalized weight", func() {
		// 2 words, total 0.9 -> max(0.9/3, 0.09)
		r := e.Analyze("Burnout again.", nil)
		Expect(r.Score).To(Equal(0.3))
		Expect(r.Tags).To(HaveKeyWithValue("burnout", 0.9))
	})

	It("flips a negated term", func() {
		r := e.Analyze("I am not hopeless", nil)
		Expect(r.Tags["hopeless"]).To(BeNumerically("~", -0.8, 1e-9))
		Expect(r.Score).To(Equal(0.16))
	})

	It("counts phrase patterns", func() {
		r := e.Analyze("I can't seem to start. Stuck in the same loop, what's the point", nil)
		Expect(r.Tags).To(HaveKeyWithValue("cant_seem_to", 0.3))
		Expect(r.Tags).To(HaveKeyWithValue("stuck", 0.3))
		Expect(r.Tags).To(HaveKeyWithValue("whats_the_point", 0.4))
	})

	It("amplifies exhaustion terms at low capacity", func() {
		r := e.Analyze("despair", &shadow.Context{Capacity: 0.2})
		Expect(r.Tags["despair"]).To(BeNumerically("~", 1.08, 1e-9))
		Expect(r.Score).To(Equal(0.54))
	})

	It("softens rigidity during a reset", func() {
		r := e.Analyze("rigid", &shadow.Context{Capacity: 0.5, ResonanceTheme: "Reset"})
		Expect(r.Tags["rigid"]).To(BeNumerically("~", 0.48, 1e-9))
	})

	It("adds half the sentiment magnitude", func() {
		s := -0.8
		r := e.Analyze("a calm morning walk", &shadow.Context{Capacity: 0.5, Sentiment: &s})
		Expect(r.Score).To(Equal(0.08))
		Expect(r.Tags).To(BeEmpty())
	})

	It("caps the score at 1", func() {
		r := e.Analyze("despair despair", nil)
		Expect(r.Score).To(Equal(0.6))
		r = e.Analyze("despair burnout hopeless guilt shame resent despair burnout hopeless guilt shame resent", nil)
		Expect(r.Score).To(BeNumerically("<=", 1.0))
	})

	It("honours persisted lexicon overrides", func() {
		e.Override(map[string]float64{"lonely": 0.5})
		r := e.Analyze("lonely", nil)
		Expect(r.Tags).To(HaveKeyWithValue("lonely", 0.5))
	})

	It("stamps the engine when analyzing at a given time", func() {
		at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))
		r := e.AnalyzeAt("burnout", nil, at)
		Expect(r.Tags).To(HaveKey("burnout"))
		Expect(e.LastUpdate).NotTo(BeNil())
		Expect(*e.LastUpdate).To(Equal(at.UTC()))
	})

	It("accepts overrides on a decoded engine without a lexicon", func() {
		var decoded shadow.Engine
		decoded.Override(map[string]float64{"lonely": 0.5})
		Expect(decoded.Analyze("lonely", nil).Tags).To(HaveKeyWithValue("lonely", 0.5))
	})

	It("ranks top tags by weight", func() {
		r := e.Analyze("guilt and burnout, not shame", nil)
		Expect(r.TopTags(1)).To(Equal([]string{"burnout"}))
		Expect(r.TopTags(5)).To(Equal([]string{"burnout", "guilt"}))
	})
})
