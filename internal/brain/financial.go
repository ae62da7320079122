package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"forest.app/forest/common/llm"
	"forest.app/forest/internal/domain"
)

var financialTerms = regexp.MustCompile(`(?i)\b(money|budget|debt|savings?|income|salary|rent|bills?|loan|invest\w*|financ\w*|afford\w*)\b`)

// MentionsFinances reports whether a reflection talks about money matters.
func MentionsFinances(text string) bool {
	return financialTerms.MatchString(text)
}

// FinancialReadiness is the user's readiness, in [0,1], to fund their goals.
type FinancialReadiness struct {
	Readiness  float64   `json:"readiness"`
	LastUpdate time.Time `json:"last_update"`
}

func NewFinancialReadiness() *FinancialReadiness {
	return &FinancialReadiness{Readiness: 0.5}
}

type readinessResponse struct {
	Readiness float64 `json:"readiness"`
}

type readinessDelta struct {
	Delta float64 `json:"delta"`
}

type FinancialAssessor struct {
	llm llm.Client
	now func() time.Time
}

func NewFinancialAssessor(client llm.Client) *FinancialAssessor {
	return &FinancialAssessor{llm: client, now: time.Now}
}

// AssessBaseline sets readiness from a description of the user's situation.
// On failure the previous readiness is kept.
func (a *FinancialAssessor) AssessBaseline(ctx context.Context, fr *FinancialReadiness, description string) error {
	defer func() { fr.LastUpdate = a.now().UTC() }()

	var out readinessResponse
	_, err := a.llm.Chat(ctx, llm.Request{
		SystemPrompt: "You objectively evaluate a user's financial readiness for pursuing meaningful goals, from 0.0 (not ready) to 1.0 (fully ready).",
		UserPrompt:   fmt.Sprintf("User description:\n\"\"\"\n%s\n\"\"\"", description),
		SchemaName:   "financial_baseline",
		Schema:       llm.GenerateSchema[readinessResponse](),
		MaxTokens:    50,
		Temperature:  llm.Temp(0),
	}, &out)
	if err != nil {
		return fmt.Errorf("assessing financial baseline: %w", err)
	}
	fr.Readiness = domain.Clamp01(out.Readiness)
	return nil
}

// AnalyzeReflection nudges readiness by the delta the LLM proposes.
func (a *FinancialAssessor) AnalyzeReflection(ctx context.Context, fr *FinancialReadiness, reflection string, userContext map[string]any) error {
	defer func() { fr.LastUpdate = a.now().UTC() }()
	ctxJSON, _ := json.Marshal(userContext)

	var out readinessDelta
	_, err := a.llm.Chat(ctx, llm.Request{
		SystemPrompt: "You analyze how a user's new financial reflection should adjust their financial readiness (0.0-1.0). Respond with a positive or negative delta.",
		UserPrompt:   fmt.Sprintf("User reflection:\n\"\"\"\n%s\n\"\"\"\n\nContext: %s", reflection, ctxJSON),
		SchemaName:   "financial_delta",
		Schema:       llm.GenerateSchema[readinessDelta](),
		MaxTokens:    50,
		Temperature:  llm.Temp(0),
	}, &out)
	if err != nil {
		return fmt.Errorf("analyzing financial reflection: %w", err)
	}
	fr.Readiness = domain.Clamp01(fr.Readiness + out.Delta)
	return nil
}
