package brain

import (
	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/snapshot"
)

const shadowBonusThreshold = 0.7

var tierXP = map[domain.Tier]float64{
	domain.TierBud:     10,
	domain.TierBloom:   20,
	domain.TierBlossom: 30,
}

// AwardXP is the XP for completing t. Tasks above Bud earn 5 more while the
// shadow score is high.
func AwardXP(t domain.Task, shadowScore float64) float64 {
	tier := t.Tier.OrDefault()
	xp := tierXP[tier]
	if tier != domain.TierBud && shadowScore > shadowBonusThreshold {
		xp += 5
	}
	return xp
}

// MasteryState is the persisted xp_mastery component.
type MasteryState struct {
	CurrentStage   string `json:"current_stage_name"`
	LastChallenged string `json:"last_challenged_stage,omitempty"`
}

// PruneContext is the compact view of the snapshot sent with prompts.
func PruneContext(s *snapshot.Snapshot) map[string]any {
	ctx := map[string]any{
		"xp":               s.XP,
		"shadow_score":     s.ShadowScore,
		"capacity":         s.Capacity,
		"magnitude":        s.Magnitude,
		"last_ritual_mode": s.LastRitualMode,
		"current_path":     string(s.CurrentPath),
	}
	if len(s.DevIndex) > 0 {
		ctx["dev_index"] = s.DevIndex
	}
	var ms MasteryState
	if ok, _ := s.LoadComponent(snapshot.KeyXPMastery, &ms); ok && ms.CurrentStage != "" {
		ctx["xp_stage"] = ms.CurrentStage
	}
	for k, v := range ctx {
		if v == "" {
			delete(ctx, k)
		}
	}
	return ctx
}
