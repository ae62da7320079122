package taskengine_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/hta"
	"forest.app/forest/internal/pattern"
	"forest.app/forest/internal/taskengine"
)

func capacity(v float64) *float64 { return &v }

func guitarTree() *hta.Tree {
	root := hta.NewNode("root", "Learn guitar", "Play a full song", 1.0)
	basics := hta.NewNode("basics", "Basics", "", 0.9)
	chords := hta.NewNode("chords", "Learn chords", "Open chords", 0.8)
	strum := hta.NewNode("strum", "Strumming patterns", "", 0.8)
	strum.DependsOn = []string{"chords"}
	song := hta.NewNode("song", "Play a song", "Pick a favourite song", 0.7)
	song.RelevantIndexes = []string{"happiness"}
	basics.Children = []*hta.Node{chords, strum}
	root.Children = []*hta.Node{basics, song}
	return hta.NewTree(root)
}

var _ = Describe("Engine", func() {
	var (
		now    time.Time
		engine *taskengine.Engine
		tree   *hta.Tree
	)

	BeforeEach(func() {
		now = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
		engine = taskengine.New(taskengine.WithClock(func() time.Time { return now }))
		tree = guitarTree()
	})

	ids := func(cs []taskengine.Candidate) []string {
		out := []string{}
		for _, c := range cs {
			out = append(out, c.Node.ID)
		}
		return out
	}

	Describe("Candidates", func() {
		It("keeps actionable nodes in score order", func() {
			cs := engine.Candidates(taskengine.Input{Tree: tree, Capacity: capacity(0.7)})
			Expect(ids(cs)).To(Equal([]string{"root", "basics", "chords", "song"}))
			Expect(cs[0].Score).To(BeNumerically("~", 1.0, 1e-9))
			Expect(cs[3].Score).To(BeNumerically("~", 0.75, 1e-9))
		})

		It("lets a high-priority parent outrank its children", func() {
			root := hta.NewNode("root", "Learn guitar", "", 1.0)
			root.Children = []*hta.Node{hta.NewNode("child", "Buy strings", "", 0.2)}

			cs := engine.Candidates(taskengine.Input{Tree: hta.NewTree(root), Capacity: capacity(0.7)})
			Expect(ids(cs)).To(Equal([]string{"root", "child"}))
		})

		It("skips settled parents", func() {
			tree.Find("root").Status = hta.StatusCompleted
			tree.Find("basics").Status = hta.StatusCompleted
			cs := engine.Candidates(taskengine.Input{Tree: tree, Capacity: capacity(0.7)})
			Expect(ids(cs)).To(Equal([]string{"chords", "song"}))
		})

		It("unblocks dependents once the dependency completes", func() {
			tree.Find("chords").MarkCompleted()
			cs := engine.Candidates(taskengine.Input{Tree: tree, Capacity: capacity(0.7)})
			Expect(ids(cs)).To(Equal([]string{"root", "basics", "strum", "song"}))
		})

		It("filters nodes that exceed capacity", func() {
			tree.Find("song").EstimatedEnergy = hta.ResourceLow
			tree.Find("song").EstimatedTime = hta.ResourceLow
			cs := engine.Candidates(taskengine.Input{Tree: tree})
			Expect(ids(cs)).To(Equal([]string{"song"}))
		})

		It("boosts nodes for weak dev dimensions, patterns and intense reflections", func() {
			tree.Find("root").Status = hta.StatusCompleted
			tree.Find("basics").Status = hta.StatusCompleted
			cs := engine.Candidates(taskengine.Input{
				Tree:            tree,
				Capacity:        capacity(0.7),
				DevIndex:        map[string]float64{"happiness": 0.0},
				Patterns:        pattern.Patterns{RecurringKeywords: []string{"song"}},
				RecentIntensity: 1.0,
			})
			Expect(ids(cs)).To(Equal([]string{"song", "chords"}))
			Expect(cs[0].Score).To(BeNumerically("~", 0.7+0.1+0.1+0.05, 1e-9))
		})

		It("returns nothing for an empty tree", func() {
			Expect(engine.Candidates(taskengine.Input{Tree: &hta.Tree{}})).To(BeEmpty())
		})
	})

	Describe("NextStep", func() {
		It("issues the best node as a task", func() {
			tree.Find("root").EstimatedEnergy = hta.ResourceHigh
			tree.Find("basics").EstimatedEnergy = hta.ResourceHigh
			res := engine.NextStep(taskengine.Input{Tree: tree, Capacity: capacity(0.7), XP: 40, Tier: domain.TierBloom})

			Expect(res.FallbackUsed).To(BeFalse())
			t := res.BaseTask
			Expect(t.ID).To(HaveLen(8))
			Expect(t.ID).To(Equal(taskengine.TaskID(40, now)))
			Expect(t.Title).To(Equal("Learn chords"))
			Expect(t.HTANodeID).To(Equal("chords"))
			Expect(t.Tier).To(Equal(domain.TierBloom))
			Expect(t.HTADepth()).To(Equal(2))
			Expect(t.Magnitude).To(BeNumerically("~", 5.4, 1e-9))
			Expect(t.IntrospectivePrompt).To(Equal(taskengine.IntrospectivePrompt))
			Expect(t.CreatedAt).To(Equal(now))
		})

		It("falls back to a reflection session", func() {
			res := engine.NextStep(taskengine.Input{Tree: tree, Capacity: capacity(0.1)})

			Expect(res.FallbackUsed).To(BeTrue())
			Expect(res.BaseTask.Title).To(Equal(taskengine.FallbackTitle))
			Expect(res.BaseTask.Tier).To(Equal(domain.TierBud))
			Expect(res.BaseTask.Metadata).To(BeEmpty())
			Expect(res.BaseTask.Magnitude).To(Equal(2.0))
		})
	})
})

var _ = DescribeTable("Magnitude",
	func(tier domain.Tier, depth int, expected float64) {
		Expect(taskengine.Magnitude(tier, depth)).To(BeNumerically("~", expected, 1e-9))
	},
	Entry("Bud at the root", domain.TierBud, 0, 2.0),
	Entry("Blossom deep in the tree", domain.TierBlossom, 9, 10.0),
	Entry("unknown tier", domain.Tier("Sapling"), 5, 6.0),
	Entry("unknown depth", domain.TierBloom, -1, 5.0),
)

var _ = Describe("TaskID", func() {
	It("changes with xp and time", func() {
		t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		Expect(taskengine.TaskID(1, t0)).NotTo(Equal(taskengine.TaskID(2, t0)))
		Expect(taskengine.TaskID(1, t0)).NotTo(Equal(taskengine.TaskID(1, t0.Add(time.Nanosecond))))
		Expect(taskengine.TaskID(1, t0)).To(MatchRegexp(`^[0-9a-f]{8}$`))
	})
})
