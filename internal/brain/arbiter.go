package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"forest.app/forest/common/llm"
	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/snapshot"
)

// OfflineNarrative replaces the narrative when the Arbiter cannot be reached.
const OfflineNarrative = "(offline)"

const (
	HistoryTurns  = 6
	defaultStyle  = "Default poetic style."
	arbiterSystem = `You are the Arbiter of The Forest, a poetic, deeply attuned guide. Give a short, evocative narrative response to the user and optionally refine the suggested task.
Return task (the blueprint, or a refined title and description for it) and narrative (your response to the user, based on their input, context and history).`
)

type ArbiterInput struct {
	Reflection    string
	History       []snapshot.Turn
	Context       map[string]any
	BaseTask      domain.Task
	Style         string
	MemoryContext string
}

type arbiterTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type arbiterResponse struct {
	Task      arbiterTask `json:"task"`
	Narrative string      `json:"narrative"`
}

type ArbiterOutput struct {
	Task      domain.Task
	Narrative string
}

type Arbiter struct {
	llm llm.Client
}

func NewArbiter(client llm.Client) *Arbiter {
	return &Arbiter{llm: client}
}

// Respond returns the narrative and the task to issue. The Arbiter may only
// reword the blueprint; ids, tier, magnitude and links are kept.
func (a *Arbiter) Respond(ctx context.Context, in ArbiterInput) (ArbiterOutput, error) {
	style := in.Style
	if style == "" {
		style = defaultStyle
	}
	ctxJSON, _ := json.Marshal(in.Context)
	blueprint, _ := json.Marshal(in.BaseTask)

	var b strings.Builder
	fmt.Fprintf(&b, "Current context summary: %s\n\n", ctxJSON)
	if in.MemoryContext != "" {
		fmt.Fprintf(&b, "Memory:\n%s\n\n", in.MemoryContext)
	}
	fmt.Fprintf(&b, "Suggested task blueprint: %s\n\n", blueprint)
	fmt.Fprintf(&b, "Narrative style directive: %s\n\n", style)
	fmt.Fprintf(&b, "User reflection:\n%s", in.Reflection)

	history := make([]llm.Message, 0, HistoryTurns)
	for _, t := range tail(in.History, HistoryTurns) {
		history = append(history, llm.Message{Role: t.Role, Content: strings.TrimSpace(t.Content)})
	}

	var out arbiterResponse
	_, err := a.llm.Chat(ctx, llm.Request{
		SystemPrompt: arbiterSystem,
		UserPrompt:   b.String(),
		History:      history,
		SchemaName:   "arbiter_response",
		Schema:       llm.GenerateSchema[arbiterResponse](),
		MaxTokens:    800,
		Temperature:  llm.Temp(0.8),
	}, &out)
	if err != nil {
		return ArbiterOutput{Task: in.BaseTask, Narrative: OfflineNarrative}, fmt.Errorf("arbiter: %w", err)
	}

	task := in.BaseTask
	if t := strings.TrimSpace(out.Task.Title); t != "" {
		task.Title = t
	}
	if d := strings.TrimSpace(out.Task.Description); d != "" {
		task.Description = d
	}
	return ArbiterOutput{Task: task, Narrative: out.Narrative}, nil
}

func tail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
