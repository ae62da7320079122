package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"forest.app/forest/common/llm"
	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/snapshot"
)

const sentimentSystemPrompt = `You are the Arbiter of The Forest, a poetic, deeply attuned guide tasked with interpreting the user's internal emotional landscape.
Analyze the user's reflection in light of the contextual data.

1. For each Forest core emotional tag (Stillness, Spark, Courage, Reset, Joy, Clarity, Compassion, Resilience, Depth) assign a score between 0.0 and 1.0.
2. Identify core shadow tags (e.g. Burnout, Avoidance, Bitterness, Rigidity, Shame) present in the text. List them in shadow_data.active_shadow_tags and estimate shadow_data.shadow_intensity between 0.0 and 1.0.
3. Determine the overall sentiment_flow: improving, worsening, volatile, ambivalent or stable.
4. Give an ambivalence_score between 0.0 and 1.0 when signals conflict.
5. Compute a final_score between -1.0 (very negative) and 1.0 (very positive).

Return only the JSON object.`

type ShadowData struct {
	ActiveShadowTags []string `json:"active_shadow_tags"`
	ShadowIntensity  float64  `json:"shadow_intensity"`
}

type SentimentResult struct {
	EmotionalFingerprint map[string]float64 `json:"emotional_fingerprint"`
	ShadowData           ShadowData         `json:"shadow_data"`
	SentimentFlow        string             `json:"sentiment_flow"`
	AmbivalenceScore     float64            `json:"ambivalence_score"`
	FinalScore           float64            `json:"final_score"`
}

// NeutralSentiment is used when the text is empty or the LLM fails.
func NeutralSentiment() SentimentResult {
	return SentimentResult{
		EmotionalFingerprint: map[string]float64{},
		ShadowData:           ShadowData{ActiveShadowTags: []string{}},
		SentimentFlow:        "neutral",
	}
}

// SentimentCalibration is the persisted tuning of the sentiment prompt.
type SentimentCalibration struct {
	PromptModifier float64 `json:"prompt_modifier"`
}

func DefaultSentimentCalibration() SentimentCalibration {
	return SentimentCalibration{PromptModifier: 1.0}
}

type SentimentAnalyzer struct {
	llm llm.Client
}

func NewSentimentAnalyzer(client llm.Client) *SentimentAnalyzer {
	return &SentimentAnalyzer{llm: client}
}

// Analyze returns the neutral result together with the error when the LLM
// cannot be used, so callers can carry on.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, text string, snap *snapshot.Snapshot, cal SentimentCalibration) (SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return NeutralSentiment(), nil
	}

	prompt := fmt.Sprintf("Reflection:\n\"\"\"\n%s\n\"\"\"\n\nContextual data (consider lightly): %s\n\nPrompt modifier factor: %.1f",
		text, sentimentContext(snap), cal.PromptModifier)

	var out SentimentResult
	_, err := a.llm.Chat(ctx, llm.Request{
		SystemPrompt: sentimentSystemPrompt,
		UserPrompt:   prompt,
		SchemaName:   "sentiment_analysis",
		Schema:       llm.GenerateSchema[SentimentResult](),
		MaxTokens:    600,
		Temperature:  llm.Temp(0),
	}, &out)
	if err != nil {
		return NeutralSentiment(), fmt.Errorf("analyzing sentiment: %w", err)
	}

	out.FinalScore = domain.Clamp(out.FinalScore, -1, 1)
	out.AmbivalenceScore = domain.Clamp01(out.AmbivalenceScore)
	out.ShadowData.ShadowIntensity = domain.Clamp01(out.ShadowData.ShadowIntensity)
	if out.EmotionalFingerprint == nil {
		out.EmotionalFingerprint = map[string]float64{}
	}
	if out.SentimentFlow == "" {
		out.SentimentFlow = "stable"
	}

	slog.DebugContext(ctx, "sentiment analyzed",
		"final_score", out.FinalScore,
		"sentiment_flow", out.SentimentFlow)
	return out, nil
}

func sentimentContext(snap *snapshot.Snapshot) string {
	if snap == nil {
		return "{}"
	}
	parts := []string{
		fmt.Sprintf("Capacity: %.2f", snap.Capacity),
		fmt.Sprintf("Shadow Score: %.2f", snap.ShadowScore),
		fmt.Sprintf("Magnitude: %.2f", snap.Magnitude),
	}
	if len(snap.DevIndex) > 0 {
		dev, _ := json.Marshal(snap.DevIndex)
		parts = append(parts, "Development Index: "+string(dev))
	}
	rc := snap.ReflectionContext
	if rc.CurrentPriority != "" || rc.RecentInsight != "" {
		parts = append(parts, fmt.Sprintf("Reflection Context: Priority=%q, Insight=%q", rc.CurrentPriority, rc.RecentInsight))
	}
	return strings.Join(parts, "; ")
}
