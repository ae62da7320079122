// Package devindex keeps the user's development gauges, each in [0, 1].
package devindex

import (
	"log/slog"
	"slices"
	"strings"

	"forest.app/forest/internal/domain"
)

// Keys lists the tracked dimensions in canonical order.
var Keys = []string{
	"happiness",
	"career",
	"health",
	"financial",
	"relationship",
	"executive_functioning",
	"social_life",
	"charisma",
	"entrepreneurship",
	"family_planning",
	"generational_wealth",
	"adhd_risk",
	"odd_risk",
	"homeownership",
	"dream_location",
}

const (
	DefaultValue    = 0.5
	TaskBoostBase   = 0.02
	ReflectionNudge = 0.01
)

var (
	positiveHints = []string{"grateful", "proud", "excited", "optimistic"}
	positiveKeys  = []string{"happiness", "social_life", "charisma"}
)

var tierMultipliers = map[domain.Tier]float64{
	domain.TierBud:     1.0,
	domain.TierBloom:   1.5,
	domain.TierBlossom: 2.0,
}

// TierMultiplier scales task effects by tier. Unknown tiers count as Bud.
func TierMultiplier(t domain.Tier) float64 {
	return tierMultipliers[t.OrDefault()]
}

type Index struct {
	Indexes map[string]float64 `json:"indexes"`
}

func New() *Index {
	idx := &Index{Indexes: make(map[string]float64, len(Keys))}
	for _, k := range Keys {
		idx.Indexes[k] = DefaultValue
	}
	return idx
}

func IsKey(k string) bool {
	return slices.Contains(Keys, k)
}

// Get returns the value for k, or DefaultValue for unknown keys.
func (x *Index) Get(k string) float64 {
	if v, ok := x.Indexes[k]; ok {
		return v
	}
	return DefaultValue
}

// BaselineFromReflection nudges a few gauges up when the reflection uses
// clearly positive language.
func (x *Index) BaselineFromReflection(reflection string) {
	low := strings.ToLower(reflection)
	if !slices.ContainsFunc(positiveHints, func(h string) bool { return strings.Contains(low, h) }) {
		return
	}
	for _, k := range positiveKeys {
		x.Indexes[k] = domain.Clamp01(x.Get(k) + ReflectionNudge)
	}
}

// DynamicAdjustment applies arbitrary deltas to known keys.
func (x *Index) DynamicAdjustment(deltas map[string]float64) {
	for k, dv := range deltas {
		if IsKey(k) {
			x.Indexes[k] = domain.Clamp01(x.Get(k) + dv)
		}
	}
}

// ApplyTaskEffect boosts each relevant gauge by 0.02 * tierMult * momentum.
func (x *Index) ApplyTaskEffect(relevant []string, tierMult, momentum float64) {
	if len(relevant) == 0 {
		return
	}
	boost := TaskBoostBase * tierMult * momentum
	for _, k := range relevant {
		if IsKey(k) {
			x.Indexes[k] = domain.Clamp01(x.Get(k) + boost)
		}
	}
	slog.Debug("dev indexes boosted", "keys", relevant, "boost", boost)
}

// Load replaces values from persisted state. Unknown keys are dropped and
// values are clamped.
func (x *Index) Load(state map[string]float64) {
	for k, v := range state {
		if IsKey(k) {
			x.Indexes[k] = domain.Clamp01(v)
		}
	}
}

// Snapshot returns a copy of the current values.
func (x *Index) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(x.Indexes))
	for k, v := range x.Indexes {
		out[k] = v
	}
	return out
}
