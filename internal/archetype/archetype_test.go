package archetype_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"forest.app/forest/internal/archetype"
)

func defs() []archetype.Archetype {
	return []archetype.Archetype{
		{Name: "Healer", TransformationStyle: "gentle", TagBias: []string{"Compassion"}, DefaultWeight: 0.6},
		{Name: "Caretaker", TransformationStyle: "nurturing", TagBias: []string{"Stillness", "Compassion"}, DefaultWeight: 0.6},
		{Name: "Sage", TransformationStyle: "reflective", TagBias: []string{"Clarity"}, DefaultWeight: 0.9},
	}
}

var _ = Describe("Archetype", func() {
	DescribeTable("AdjustWeight",
		func(a archetype.Archetype, s archetype.State, expected float64) {
			a.AdjustWeight(s)
			Expect(a.CurrentWeight).To(BeNumerically("~", expected, 1e-9))
		},
		Entry("xp adds weight", archetype.Archetype{Name: "Sage", DefaultWeight: 1}, archetype.State{XP: 200, Capacity: 0.5, ShadowScore: 0.5}, 1.2),
		Entry("caretaker at low capacity", archetype.Archetype{Name: "The Caretaker", DefaultWeight: 0.6}, archetype.State{Capacity: 0.3, ShadowScore: 0.5}, 1.1),
		Entry("healer under heavy shadow", archetype.Archetype{Name: "Healer", DefaultWeight: 0.6}, archetype.State{Capacity: 0.5, ShadowScore: 0.8}, 1.3),
		Entry("custom factors", archetype.Archetype{Name: "Healer", DefaultWeight: 0.6, ContextFactors: map[string]float64{"shadow": 0.1, "xp": 0}}, archetype.State{XP: 500, Capacity: 0.5, ShadowScore: 0.9}, 0.7),
	)
})

var _ = Describe("Manager", func() {
	var m *archetype.Manager

	BeforeEach(func() {
		m = archetype.NewManager()
		m.Load(defs())
	})

	It("activates everything on load", func() {
		Expect(m.Active).To(Equal([]string{"Healer", "Caretaker", "Sage"}))
	})

	It("keeps archetypes above the activation threshold", func() {
		m.Update(archetype.State{Capacity: 0.5, ShadowScore: 0.9})
		Expect(m.Active).To(Equal([]string{"Healer", "Sage"}))
	})

	It("falls back to the strongest archetype", func() {
		for _, a := range m.Archetypes {
			a.DefaultWeight = 0.2
		}
		m.Get("caretaker").DefaultWeight = 0.3
		m.Update(archetype.State{Capacity: 0.5, ShadowScore: 0.5})
		Expect(m.Active).To(Equal([]string{"Caretaker"}))
	})

	It("sets a single active archetype case-insensitively", func() {
		Expect(m.SetActive("sage")).To(BeTrue())
		Expect(m.Active).To(Equal([]string{"Sage"}))
		Expect(m.SetActive("Jester")).To(BeFalse())
	})

	Describe("Influence", func() {
		It("blends close archetypes and singles out a dominant one", func() {
			m.Update(archetype.State{Capacity: 0.2, ShadowScore: 0.5})
			// Caretaker 1.1, Sage 0.9: not dominant, so blend
			inf := m.Influence()
			Expect(inf.TransformationStyle).To(Equal("nurturing (1.10) / reflective (0.90)"))
			Expect(inf.TagBias).To(Equal([]string{"Stillness", "Compassion", "Clarity"}))
			Expect(inf.Dominant).To(BeEmpty())

			m.Get("Caretaker").ContextFactors = map[string]float64{"capacity": 1.0}
			m.Update(archetype.State{Capacity: 0.2, ShadowScore: 0.5})
			inf = m.Influence()
			Expect(inf.TransformationStyle).To(Equal("nurturing"))
			Expect(inf.Dominant).To(Equal("Caretaker"))
			Expect(m.Leading()).To(Equal("Caretaker"))
		})

		It("is neutral without active archetypes", func() {
			inf := archetype.NewManager().Influence()
			Expect(inf.TransformationStyle).To(Equal("neutral"))
			Expect(inf.TagBias).To(BeEmpty())
		})
	})
})
