package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"forest.app/forest/common/llm"
	"forest.app/forest/internal/domain"
)

const (
	integrityMaxDelta = 0.5
	integrityScale    = 2.0
	integrityMax      = 10.0
)

const integritySystemPrompt = `You are an objective analyzer assessing emotional integrity indicators in text.
Evaluate the reflection for expressions of:
1. Kindness towards self or others (empathy, compassion, gentleness, self-care, gratitude, positive framing).
2. Respect for self, others or boundaries (acknowledging limits, avoiding blame or insults, validating other views).
3. Consideration of other perspectives or impacts (thoughtfulness, awareness of consequences, acknowledging complexity).
Assign a delta between -0.5 (strong negative indicators) and 0.5 (strong positive indicators) for each dimension. Use 0.0 when signals are absent.
Base the scores primarily on the expressed content and tone. Return only the JSON object.`

type IntegrityDeltas struct {
	Kindness      float64 `json:"kindness_delta"`
	Respect       float64 `json:"respect_delta"`
	Consideration float64 `json:"consideration_delta"`
}

func (d IntegrityDeltas) clamped() IntegrityDeltas {
	return IntegrityDeltas{
		Kindness:      domain.Clamp(d.Kindness, -integrityMaxDelta, integrityMaxDelta),
		Respect:       domain.Clamp(d.Respect, -integrityMaxDelta, integrityMaxDelta),
		Consideration: domain.Clamp(d.Consideration, -integrityMaxDelta, integrityMaxDelta),
	}
}

// EmotionalIntegrity scores kindness, respect and consideration on a 0-10 scale.
type EmotionalIntegrity struct {
	Kindness      float64   `json:"kindness_score"`
	Respect       float64   `json:"respect_score"`
	Consideration float64   `json:"consideration_score"`
	Overall       float64   `json:"overall_index"`
	LastUpdate    time.Time `json:"last_update"`
}

func NewEmotionalIntegrity() *EmotionalIntegrity {
	return &EmotionalIntegrity{Kindness: 5, Respect: 5, Consideration: 5, Overall: 5}
}

// Apply scales the deltas and recomputes the overall index.
func (e *EmotionalIntegrity) Apply(d IntegrityDeltas, at time.Time) {
	d = d.clamped()
	e.Kindness = domain.Clamp(e.Kindness+d.Kindness*integrityScale, 0, integrityMax)
	e.Respect = domain.Clamp(e.Respect+d.Respect*integrityScale, 0, integrityMax)
	e.Consideration = domain.Clamp(e.Consideration+d.Consideration*integrityScale, 0, integrityMax)
	e.Overall = domain.Round((e.Kindness+e.Respect+e.Consideration)/3, 2)
	e.LastUpdate = at.UTC()
}

type IntegrityAnalyzer struct {
	llm llm.Client
}

func NewIntegrityAnalyzer(client llm.Client) *IntegrityAnalyzer {
	return &IntegrityAnalyzer{llm: client}
}

// Analyze asks the LLM for deltas. Empty text yields zero deltas.
func (a *IntegrityAnalyzer) Analyze(ctx context.Context, text string, userContext map[string]any) (IntegrityDeltas, error) {
	if strings.TrimSpace(text) == "" {
		return IntegrityDeltas{}, nil
	}
	ctxJSON, _ := json.Marshal(userContext)

	var out IntegrityDeltas
	_, err := a.llm.Chat(ctx, llm.Request{
		SystemPrompt: integritySystemPrompt,
		UserPrompt:   fmt.Sprintf("REFLECTION:\n\"\"\"\n%s\n\"\"\"\n\nUSER CONTEXT (consider lightly): %s", text, ctxJSON),
		SchemaName:   "emotional_integrity",
		Schema:       llm.GenerateSchema[IntegrityDeltas](),
		MaxTokens:    200,
		Temperature:  llm.Temp(0),
	}, &out)
	if err != nil {
		return IntegrityDeltas{}, fmt.Errorf("analyzing emotional integrity: %w", err)
	}
	return out.clamped(), nil
}
