package brain_test

import (
	"context"
	"errors"
	"time"

	"forest.app/forest/common/llm"
	"forest.app/forest/internal/brain"
	"forest.app/forest/internal/relational"
	"forest.app/forest/internal/snapshot"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LLM-backed engines", func() {
	var (
		ctx     context.Context
		mockLLM *mockLLMClient
		snap    *snapshot.Snapshot
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockLLM = &mockLLMClient{}
		snap = snapshot.New(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	})

	Describe("SentimentAnalyzer", func() {
		var analyzer *brain.SentimentAnalyzer

		BeforeEach(func() {
			analyzer = brain.NewSentimentAnalyzer(mockLLM)
		})

		It("returns neutral without calling the LLM for blank text", func() {
			res, err := analyzer.Analyze(ctx, "   ", snap, brain.DefaultSentimentCalibration())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.SentimentFlow).To(Equal("neutral"))
			Expect(res.FinalScore).To(BeZero())
			Expect(mockLLM.calls()).To(Equal(0))
		})

		It("clamps the final score and defaults the flow", func() {
			mockLLM.chatFn = bySchema(map[string]any{
				"sentiment_analysis": map[string]any{
					"emotional_fingerprint": map[string]any{"joy": 0.9},
					"final_score":           1.7,
					"ambivalence_score":     -0.2,
				},
			})

			res, err := analyzer.Analyze(ctx, "I feel wonderful", snap, brain.DefaultSentimentCalibration())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.FinalScore).To(Equal(1.0))
			Expect(res.AmbivalenceScore).To(BeZero())
			Expect(res.SentimentFlow).To(Equal("stable"))
			Expect(res.EmotionalFingerprint).To(HaveKeyWithValue("joy", 0.9))
		})

		It("returns neutral together with the error when the LLM fails", func() {
			mockLLM.chatFn = func(context.Context, llm.Request, any) (*llm.Response, error) {
				return nil, errors.New("connection refused")
			}

			res, err := analyzer.Analyze(ctx, "I feel wonderful", snap, brain.DefaultSentimentCalibration())

			Expect(err).To(MatchError(ContainSubstring("connection refused")))
			Expect(res.SentimentFlow).To(Equal("neutral"))
		})
	})

	Describe("EmotionalIntegrity", func() {
		It("scales deltas and recomputes the overall index", func() {
			ei := brain.NewEmotionalIntegrity()
			at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

			ei.Apply(brain.IntegrityDeltas{Kindness: 0.5, Respect: 0.9, Consideration: -0.5}, at)

			Expect(ei.Kindness).To(Equal(6.0))
			Expect(ei.Respect).To(Equal(6.0))
			Expect(ei.Consideration).To(Equal(4.0))
			Expect(ei.Overall).To(Equal(5.33))
			Expect(ei.LastUpdate).To(Equal(at))
		})

		It("clamps deltas returned by the LLM", func() {
			mockLLM.chatFn = bySchema(map[string]any{
				"emotional_integrity": map[string]any{"kindness_delta": 2.0, "respect_delta": -3.0, "consideration_delta": 0.1},
			})

			d, err := brain.NewIntegrityAnalyzer(mockLLM).Analyze(ctx, "I listened to my friend", nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(Equal(brain.IntegrityDeltas{Kindness: 0.5, Respect: -0.5, Consideration: 0.1}))
		})
	})

	Describe("DesireEngine", func() {
		It("dedupes wants case-insensitively and honours the limit", func() {
			mockLLM.chatFn = bySchema(map[string]any{
				"desire_inference": map[string]any{"wants": []string{"Rest", "rest", "  travel ", "", "music"}},
			})
			engine := brain.NewDesireEngine(mockLLM)

			wants, err := engine.InferWants(ctx, "I want rest and travel", 2)

			Expect(err).NotTo(HaveOccurred())
			Expect(wants).To(Equal([]string{"Rest", "travel"}))
		})

		It("merges wants into the cache", func() {
			cache := map[string]float64{"rest": 0.5}

			added := brain.MergeWants(cache, []string{"rest", "travel"})

			Expect(added).To(Equal([]string{"travel"}))
			Expect(cache["rest"]).To(BeNumerically("~", 0.6, 1e-9))
			Expect(cache["travel"]).To(Equal(brain.NewWantWeight))
		})
	})

	Describe("FinancialAssessor", func() {
		It("recognizes money talk", func() {
			Expect(brain.MentionsFinances("My budget is tight this month")).To(BeTrue())
			Expect(brain.MentionsFinances("Saving up to invest later")).To(BeTrue())
			Expect(brain.MentionsFinances("I walked in the park")).To(BeFalse())
		})

		It("nudges readiness by the returned delta", func() {
			mockLLM.chatFn = bySchema(map[string]any{"financial_delta": map[string]any{"delta": 0.2}})
			fr := brain.NewFinancialReadiness()

			err := brain.NewFinancialAssessor(mockLLM).AnalyzeReflection(ctx, fr, "paid off my loan", nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(fr.Readiness).To(BeNumerically("~", 0.7, 1e-9))
			Expect(fr.LastUpdate).NotTo(BeZero())
		})

		It("keeps readiness when the baseline call fails", func() {
			fr := brain.NewFinancialReadiness()

			err := brain.NewFinancialAssessor(mockLLM).AssessBaseline(ctx, fr, "steady income")

			Expect(err).To(HaveOccurred())
			Expect(fr.Readiness).To(Equal(0.5))
		})

		It("clamps the baseline", func() {
			mockLLM.chatFn = bySchema(map[string]any{"financial_baseline": map[string]any{"readiness": 1.4}})
			fr := brain.NewFinancialReadiness()

			Expect(brain.NewFinancialAssessor(mockLLM).AssessBaseline(ctx, fr, "steady income")).To(Succeed())
			Expect(fr.Readiness).To(Equal(1.0))
		})
	})

	Describe("RelationalAdvisor", func() {
		var (
			advisor *brain.RelationalAdvisor
			profile *relational.Profile
		)

		BeforeEach(func() {
			advisor = brain.NewRelationalAdvisor(mockLLM)
			profile = relational.NewProfile("Sam")
		})

		It("falls back to the static repair when the LLM fails", func() {
			action := advisor.Repair(ctx, profile, snap, "after an argument")

			Expect(action).To(Equal(relational.StaticRepair(profile, "after an argument")))
		})

		It("replaces invalid tone and scale", func() {
			mockLLM.chatFn = bySchema(map[string]any{
				"relational_repair": map[string]any{"repair_action": "Write Sam a note", "tone": "Loud", "scale": "Huge"},
			})

			action := advisor.Repair(ctx, profile, snap, "")

			Expect(action.RepairAction).To(Equal("Write Sam a note"))
			Expect(action.Tone).To(Equal(relational.ToneGentle))
			Expect(action.Scale).To(Equal(relational.ScaleMedium))
			Expect(action.Recipient).To(Equal("Sam"))
		})

		It("applies inferred profile updates", func() {
			mockLLM.chatFn = bySchema(map[string]any{
				"relational_profile_update": map[string]any{
					"score_delta":   1.5,
					"tag_updates":   map[string]any{"trust": 2.0},
					"love_language": "Quality Time",
				},
			})
			m := relational.NewManager()
			_, err := m.Upsert(relational.ProfileUpdate{Name: "Sam"})
			Expect(err).NotTo(HaveOccurred())

			Expect(advisor.InferProfileUpdates(ctx, m, "Sam", "We talked for hours")).To(Succeed())

			p, ok := m.Get("Sam")
			Expect(ok).To(BeTrue())
			Expect(p.ConnectionScore).To(Equal(6.5))
			Expect(p.LoveLanguage).To(Equal("Quality Time"))
			Expect(p.EmotionalTags).To(HaveKeyWithValue("trust", 2.0))
		})

		It("ignores unknown profiles", func() {
			Expect(advisor.InferProfileUpdates(ctx, relational.NewManager(), "Nobody", "hi")).To(Succeed())
			Expect(mockLLM.calls()).To(Equal(0))
		})

		It("turns a deepening into a small gesture", func() {
			a := brain.Deepening{Suggestion: "Cook together", Tone: "CAUTIOUS"}.Action("Sam")
			Expect(a.Tone).To(Equal(relational.ToneCautious))
			Expect(a.Scale).To(Equal(relational.ScaleSmall))
			Expect(a.ContextHint).To(Equal(brain.DeepenHint))

			Expect(brain.Deepening{Suggestion: "Cook together", Tone: "warm"}.Action("Sam").Tone).To(Equal(relational.ToneOpen))
		})

		It("offers a default deepening suggestion offline", func() {
			d := advisor.Deepen(ctx, profile)

			Expect(d.Suggestion).To(Equal("Set aside dedicated time for meaningful connection."))
			Expect(d.Tone).To(Equal("gentle"))
		})
	})

	Describe("GoalRefiner", func() {
		It("uses the refined title and narrative", func() {
			mockLLM.chatFn = bySchema(map[string]any{
				"goal_refinement": map[string]any{
					"task":      map[string]any{"title": "Run a marathon"},
					"narrative": "Build endurance over six months.",
				},
			})

			goal, err := brain.NewGoalRefiner(mockLLM).Refine(ctx, "i want to run a lot")

			Expect(err).NotTo(HaveOccurred())
			Expect(goal).To(Equal(brain.RefinedGoal{Title: "Run a marathon", Description: "Build endurance over six months."}))
		})

		It("fills blanks from the fallback", func() {
			mockLLM.chatFn = bySchema(map[string]any{"goal_refinement": map[string]any{"narrative": "Grow."}})

			goal, err := brain.NewGoalRefiner(mockLLM).Refine(ctx, "learn the cello")

			Expect(err).NotTo(HaveOccurred())
			Expect(goal.Title).To(Equal("learn the cello"))
			Expect(goal.Description).To(Equal("Grow."))
		})

		It("truncates long intentions in the fallback", func() {
			intention := "I would like to become someone who writes every single morning before work"

			goal := brain.FallbackGoal(intention)

			Expect([]rune(goal.Title)).To(HaveLen(50))
			Expect(goal.Description).To(Equal(intention))
		})
	})
})
