package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"forest.app/forest/common/llm"
	"forest.app/forest/common/logger"
	"forest.app/forest/internal/relational"
	"forest.app/forest/internal/snapshot"
	"forest.app/forest/internal/trail"
)

const (
	fallbackDeepening = "Set aside dedicated time for meaningful connection."
	// DeepenHint marks actions that deepen a healthy connection rather
	// than repair a strained one.
	DeepenHint = "deepen"
	// RepairBelow is the connection score under which a mention asks for
	// repair instead of deepening.
	RepairBelow = 5.0
	hintChars   = 80
)

type repairResponse struct {
	RepairAction string `json:"repair_action"`
	Tone         string `json:"tone"`
	Scale        string `json:"scale"`
}

type profileUpdateResponse struct {
	ScoreDelta   float64            `json:"score_delta"`
	TagUpdates   map[string]float64 `json:"tag_updates"`
	LoveLanguage string             `json:"love_language"`
}

type Deepening struct {
	Suggestion string `json:"deepening_suggestion"`
	Tone       string `json:"tone"`
}

// Action expresses the suggestion as a small gesture toward recipient.
func (d Deepening) Action(recipient string) relational.RepairAction {
	tone, ok := relational.ParseTone(d.Tone)
	if !ok {
		tone = relational.ToneOpen
	}
	return relational.RepairAction{
		Recipient:    recipient,
		Tone:         tone,
		RepairAction: d.Suggestion,
		Scale:        relational.ScaleSmall,
		ContextHint:  DeepenHint,
	}
}

// RelationalAdvisor uses the LLM to personalize relational repair. Every
// method falls back to a static answer when the LLM fails.
type RelationalAdvisor struct {
	llm llm.Client
}

func NewRelationalAdvisor(client llm.Client) *RelationalAdvisor {
	return &RelationalAdvisor{llm: client}
}

func (a *RelationalAdvisor) Repair(ctx context.Context, p *relational.Profile, snap *snapshot.Snapshot, contextHint string) relational.RepairAction {
	profile, _ := json.Marshal(p)
	userCtx, _ := json.Marshal(map[string]any{
		"xp":                 snap.XP,
		"capacity":           snap.Capacity,
		"shadow_score":       snap.ShadowScore,
		"relationship_index": snap.RelationshipIndex,
	})

	var out repairResponse
	_, err := a.llm.Chat(ctx, llm.Request{
		SystemPrompt: "You suggest one concrete relational repair action. Tone is Cautious, Gentle or Open. Scale is Small, Medium or Large.",
		UserPrompt: fmt.Sprintf("Profile: %s\nContext: %s\nLove language: %q, connection score: %.1f",
			profile, userCtx, p.LoveLanguage, p.ConnectionScore),
		SchemaName:  "relational_repair",
		Schema:      llm.GenerateSchema[repairResponse](),
		MaxTokens:   200,
		Temperature: llm.Temp(0.5),
	}, &out)
	if err != nil || out.RepairAction == "" {
		slog.WarnContext(ctx, "dynamic repair failed, using static action", "profile", p.Name, "error", err)
		return relational.StaticRepair(p, contextHint)
	}

	tone := relational.Tone(out.Tone)
	if !tone.Valid() {
		tone = relational.ToneGentle
	}
	scale := relational.Scale(out.Scale)
	if !scale.Valid() {
		scale = relational.ScaleMedium
	}
	return relational.RepairAction{
		Recipient:    p.Name,
		Tone:         tone,
		RepairAction: out.RepairAction,
		Scale:        scale,
		ContextHint:  contextHint,
	}
}

// InferProfileUpdates applies the changes a reflection implies for the named
// profile. Unknown profiles are ignored.
func (a *RelationalAdvisor) InferProfileUpdates(ctx context.Context, m *relational.Manager, name, reflection string) error {
	p, ok := m.Get(name)
	if !ok {
		return nil
	}
	profile, _ := json.Marshal(p)

	var out profileUpdateResponse
	_, err := a.llm.Chat(ctx, llm.Request{
		SystemPrompt: "You infer how a reflection changes the user's relationship with a person. Give a connection score delta, emotional tag deltas and optionally a new love language.",
		UserPrompt:   fmt.Sprintf("Profile: %s\nReflection: %s", profile, reflection),
		SchemaName:   "relational_profile_update",
		Schema:       llm.GenerateSchema[profileUpdateResponse](),
		MaxTokens:    200,
		Temperature:  llm.Temp(0),
	}, &out)
	if err != nil {
		return fmt.Errorf("inferring profile updates for %q: %w", name, err)
	}

	p.UpdateConnectionScore(out.ScoreDelta)
	p.UpdateEmotionalTags(out.TagUpdates)
	p.UpdateLoveLanguage(out.LoveLanguage)
	return nil
}

func (a *RelationalAdvisor) Deepen(ctx context.Context, p *relational.Profile) Deepening {
	profile, _ := json.Marshal(p)

	var out Deepening
	_, err := a.llm.Chat(ctx, llm.Request{
		SystemPrompt: "You suggest one way to deepen a relationship, with the tone to use.",
		UserPrompt:   fmt.Sprintf("Profile: %s", profile),
		SchemaName:   "relational_deepening",
		Schema:       llm.GenerateSchema[Deepening](),
		MaxTokens:    200,
		Temperature:  llm.Temp(0.5),
	}, &out)
	if err != nil || out.Suggestion == "" {
		return Deepening{Suggestion: fallbackDeepening, Tone: "gentle"}
	}
	return out
}

// Tend updates the profile of everyone the reflection mentions and suggests
// one gesture per person: a repair when the reflection carries conflict or
// the connection is weak, a deepening otherwise. New people get a default
// profile. Each gesture is recorded on the composite trail.
func (a *RelationalAdvisor) Tend(ctx context.Context, text string, signals relational.Signals, snap *snapshot.Snapshot, st *States) []relational.RepairAction {
	names := relational.MentionedNames(text, st.Relational.Names())
	if len(names) == 0 {
		return nil
	}

	hint := logger.Truncate(text, hintChars)
	actions := make([]relational.RepairAction, 0, len(names))
	for _, name := range names {
		p, err := st.Relational.Upsert(relational.ProfileUpdate{Name: name})
		if err != nil {
			slog.WarnContext(ctx, "relational profile skipped", "profile", name, "error", err)
			continue
		}
		if err := a.InferProfileUpdates(ctx, st.Relational, p.Name, text); err != nil {
			slog.WarnContext(ctx, "relational profile not updated", "profile", p.Name, "error", err)
		}

		var action relational.RepairAction
		if signals.Conflict < 0 || p.ConnectionScore < RepairBelow {
			action = a.Repair(ctx, p, snap, hint)
		} else {
			action = a.Deepen(ctx, p).Action(p.Name)
		}
		actions = append(actions, action)
		recordTrailEvent(ctx, st, trail.EventBench, "Tend to "+p.Name+": "+action.RepairAction,
			map[string]any{"recipient": p.Name, "tone": string(action.Tone), "connection_score": p.ConnectionScore})
	}
	slog.DebugContext(ctx, "relational suggestions prepared", "people", len(actions))
	return actions
}
