package brain

import (
	"context"
	"fmt"
	"strings"

	"forest.app/forest/common/llm"
	"forest.app/forest/internal/domain"
)

const (
	DefaultMaxWants    = 5
	NewWantWeight      = 0.5
	WantReinforcement  = 0.1
	desireSystemPrompt = "You extract the user's key wants or needs from a free-form statement. Respond with distinct, concise phrases."
)

type wantsResponse struct {
	Wants []string `json:"wants"`
}

type DesireEngine struct {
	llm llm.Client
}

func NewDesireEngine(client llm.Client) *DesireEngine {
	return &DesireEngine{llm: client}
}

// InferWants extracts up to limit wants from text.
func (e *DesireEngine) InferWants(ctx context.Context, text string, limit int) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultMaxWants
	}

	var out wantsResponse
	_, err := e.llm.Chat(ctx, llm.Request{
		SystemPrompt: desireSystemPrompt,
		UserPrompt:   fmt.Sprintf("Extract up to %d wants.\n\nUser input:\n\"\"\"\n%s\n\"\"\"", limit, text),
		SchemaName:   "desire_inference",
		Schema:       llm.GenerateSchema[wantsResponse](),
		MaxTokens:    200,
		Temperature:  llm.Temp(0.2),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("inferring wants: %w", err)
	}

	wants := make([]string, 0, len(out.Wants))
	seen := map[string]bool{}
	for _, w := range out.Wants {
		w = strings.TrimSpace(w)
		if w == "" || seen[strings.ToLower(w)] {
			continue
		}
		seen[strings.ToLower(w)] = true
		wants = append(wants, w)
		if len(wants) == limit {
			break
		}
	}
	return wants, nil
}

// MergeWants adds new wants to cache at NewWantWeight and reinforces wants
// mentioned again. It returns the wants that were new.
func MergeWants(cache map[string]float64, wants []string) []string {
	var added []string
	for _, w := range wants {
		if weight, ok := cache[w]; ok {
			cache[w] = domain.Clamp01(weight + WantReinforcement)
			continue
		}
		cache[w] = NewWantWeight
		added = append(added, w)
	}
	return added
}
