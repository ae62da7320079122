// Package harmonic derives the resonance theme and routing score reported
// with every reply.
package harmonic

import "forest.app/forest/internal/domain"

// XPNormalization is the XP at which the xp component saturates. It matches
// the start of the final mastery stage.
const XPNormalization = 600.0

// State is the subset of snapshot metrics the harmonic scores read.
type State struct {
	XP          float64
	ShadowScore float64
	Capacity    float64
	Magnitude   float64
}

type Weights struct {
	XP        float64 `json:"xp"`
	Shadow    float64 `json:"shadow_score"`
	Capacity  float64 `json:"capacity"`
	Magnitude float64 `json:"magnitude"`
}

func DefaultWeights() Weights {
	return Weights{XP: 0.2, Shadow: 0.3, Capacity: 0.2, Magnitude: 0.3}
}

// Scores are the weighted components of the silent score.
type Scores struct {
	XP        float64 `json:"xp_score"`
	Shadow    float64 `json:"shadow_component"`
	Capacity  float64 `json:"capacity_component"`
	Magnitude float64 `json:"magnitude_component"`
}

func (s Scores) Composite() float64 {
	return s.XP + s.Shadow + s.Capacity + s.Magnitude
}

// Silent weighs each metric after scaling it to [0, 1], so the composite
// stays in [0, 1] as well.
func Silent(s State, w Weights) Scores {
	return Scores{
		XP:        domain.Clamp01(s.XP/XPNormalization) * w.XP,
		Shadow:    domain.Clamp01(s.ShadowScore) * w.Shadow,
		Capacity:  domain.Clamp01(s.Capacity) * w.Capacity,
		Magnitude: domain.Clamp01(s.Magnitude/domain.MagnitudeMax) * w.Magnitude,
	}
}

type Route struct {
	Theme        string  `json:"theme"`
	RoutingScore float64 `json:"routing_score"`
}

// RouteHarmony maps the composite silent score to a theme.
func RouteHarmony(scores Scores) Route {
	c := scores.Composite()
	var theme string
	switch {
	case c < 0.3:
		theme = "Reflection"
	case c < 0.6:
		theme = "Renewal"
	case c < 0.8:
		theme = "Resilience"
	default:
		theme = "Transcendence"
	}
	return Route{Theme: theme, RoutingScore: domain.Round(c, 4)}
}

type Resonance struct {
	Theme string  `json:"theme"`
	Score float64 `json:"resonance_score"`
}

// ComputeResonance favours high capacity, low shadow and gentle magnitude.
func ComputeResonance(s State) Resonance {
	normMag := (domain.MagnitudeMax - s.Magnitude) / 9
	score := 0.4*s.Capacity + 0.4*(1-s.ShadowScore) + 0.2*normMag
	score = domain.Round(domain.Clamp01(score), 2)

	var theme string
	switch {
	case score >= 0.75:
		theme = "Renewal"
	case score >= 0.5:
		theme = "Resilience"
	case score >= 0.25:
		theme = "Reflection"
	default:
		theme = "Reset"
	}
	return Resonance{Theme: theme, Score: score}
}
