package brain

import (
	"context"
	"fmt"
	"strings"

	"forest.app/forest/common/llm"
)

const goalSystemPrompt = `A user wants to embark on a personal growth journey.
Refine their stated intention into a concise, motivating "North Star" goal suitable as a title for the journey (max 10 words) and a slightly longer description (1-2 sentences).
Put the title in task.title and the description in narrative.`

const fallbackTitleLen = 50

type RefinedGoal struct {
	Title       string
	Description string
}

type goalResponse struct {
	Task struct {
		Title string `json:"title"`
	} `json:"task"`
	Narrative string `json:"narrative"`
}

// FallbackGoal is used when refinement fails: the first 50 characters of the
// intention as title and the full intention as description.
func FallbackGoal(intention string) RefinedGoal {
	title := []rune(intention)
	if len(title) > fallbackTitleLen {
		title = title[:fallbackTitleLen]
	}
	return RefinedGoal{Title: strings.TrimSpace(string(title)), Description: intention}
}

type GoalRefiner struct {
	llm llm.Client
}

func NewGoalRefiner(client llm.Client) *GoalRefiner {
	return &GoalRefiner{llm: client}
}

func (g *GoalRefiner) Refine(ctx context.Context, intention string) (RefinedGoal, error) {
	var out goalResponse
	_, err := g.llm.Chat(ctx, llm.Request{
		SystemPrompt: goalSystemPrompt,
		UserPrompt:   fmt.Sprintf("Initial intention: %q", intention),
		SchemaName:   "goal_refinement",
		Schema:       llm.GenerateSchema[goalResponse](),
		MaxTokens:    200,
		Temperature:  llm.Temp(0.7),
	}, &out)
	if err != nil {
		return RefinedGoal{}, fmt.Errorf("refining goal: %w", err)
	}

	goal := RefinedGoal{Title: strings.TrimSpace(out.Task.Title), Description: strings.TrimSpace(out.Narrative)}
	fallback := FallbackGoal(intention)
	if goal.Title == "" {
		goal.Title = fallback.Title
	}
	if goal.Description == "" {
		goal.Description = fallback.Description
	}
	return goal, nil
}
