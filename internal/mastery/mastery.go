// Package mastery maps XP to growth stages and issues a mastery challenge
// as the user nears the next one.
package mastery

import (
	"fmt"
	"math"
	"time"
)

// ProximityThreshold is how close to a stage boundary a challenge is offered.
const ProximityThreshold = 10.0

type Stage struct {
	Name          string  `json:"stage"`
	ChallengeType string  `json:"challenge_type"`
	MinXP         float64 `json:"min_xp"`
	MaxXP         float64 `json:"max_xp"`
}

// Final reports whether the stage has no upper bound.
func (s Stage) Final() bool {
	return math.IsInf(s.MaxXP, 1)
}

var stages = []Stage{
	{Name: "Awakening", ChallengeType: "Naming Desire", MinXP: 0, MaxXP: 150},
	{Name: "Committing", ChallengeType: "Showing Up", MinXP: 150, MaxXP: 300},
	{Name: "Deepening", ChallengeType: "Softening Shadow", MinXP: 300, MaxXP: 450},
	{Name: "Harmonizing", ChallengeType: "Harmonizing Seeds", MinXP: 450, MaxXP: 600},
	{Name: "Becoming", ChallengeType: "Integration Prompt", MinXP: 600, MaxXP: math.Inf(1)},
}

var actions = map[string]string{
	"Naming Desire": "Select one tangible object or action that symbolizes your deepest desire. " +
		"Write it on a durable card or journal and place it somewhere visible every day.",
	"Showing Up": "Commit to a specific appointment or activity. " +
		"Schedule a meeting with someone influential or sign up for a skill-building class.",
	"Softening Shadow": "Pick one recurring challenge and take a stress-relieving action. " +
		"For example, reach out for counseling, do a relaxation routine, or set a boundary.",
	"Harmonizing Seeds": "Link two of your goals with a concrete plan. " +
		"Maybe create a vision board or schedule a day combining creative and organizational tasks.",
	"Integration Prompt": "Create a tangible artifact of your journey (a manifesto, art piece, or community project) " +
		"to showcase your integrated self.",
}

// CurrentStage returns the stage containing xp. Negative XP is outside every
// stage and yields "Unknown".
func CurrentStage(xp float64) Stage {
	for _, s := range stages {
		if xp >= s.MinXP && xp < s.MaxXP {
			return s
		}
	}
	return Stage{Name: "Unknown", ChallengeType: "Generic Mastery"}
}

type Challenge struct {
	Stage         string    `json:"stage"`
	ChallengeType string    `json:"challenge_type"`
	Content       string    `json:"challenge_content"`
	TriggeredAt   time.Time `json:"triggered_at"`
}

// NewChallenge builds the challenge for the stage containing xp.
func NewChallenge(xp float64, at time.Time) Challenge {
	s := CurrentStage(xp)
	act, ok := actions[s.ChallengeType]
	if !ok {
		act = "Reflect on a concrete step to advance your personal journey."
	}
	content := fmt.Sprintf("Mastery Challenge for the %s Stage:\nYour task is '%s'.\nConcrete action: %s\n"+
		"Focus on a real-world step that impacts you tangibly and document your plan.", s.Name, s.ChallengeType, act)
	return Challenge{
		Stage:         s.Name,
		ChallengeType: s.ChallengeType,
		Content:       content,
		TriggeredAt:   at.UTC(),
	}
}

// Check returns a challenge when xp is within ProximityThreshold of the end
// of its stage, and nil otherwise. The final stage never triggers one.
func Check(xp float64, at time.Time) *Challenge {
	s := CurrentStage(xp)
	if s.Final() || s.MaxXP == 0 {
		return nil
	}
	if toNext := s.MaxXP - xp; toNext >= 0 && toNext <= ProximityThreshold {
		c := NewChallenge(xp, at)
		return &c
	}
	return nil
}
