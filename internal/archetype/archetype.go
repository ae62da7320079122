// Package archetype weighs narrative archetypes against the user's state
// and blends the active ones into a tone for LLM replies.
package archetype

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

const (
	ActivationThreshold = 0.8
	DominanceFactor     = 1.5

	defaultXPFactor       = 0.001
	defaultCapacityFactor = 0.5
	defaultShadowFactor   = 0.7
)

type Archetype struct {
	Name                string             `json:"name" yaml:"name"`
	CoreTrait           string             `json:"core_trait" yaml:"core_trait"`
	EmotionalPriority   string             `json:"emotional_priority" yaml:"emotional_priority"`
	ShadowExpression    string             `json:"shadow_expression" yaml:"shadow_expression"`
	TransformationStyle string             `json:"transformation_style" yaml:"transformation_style"`
	TagBias             []string           `json:"tag_bias" yaml:"tag_bias"`
	DefaultWeight       float64            `json:"default_weight" yaml:"default_weight"`
	ContextFactors      map[string]float64 `json:"context_factors,omitempty" yaml:"context_factors,omitempty"`
	CurrentWeight       float64            `json:"current_weight" yaml:"-"`
}

// State is the part of the snapshot that moves archetype weights.
type State struct {
	XP          float64
	Capacity    float64
	ShadowScore float64
}

func (a *Archetype) factor(key string, def float64) float64 {
	if v, ok := a.ContextFactors[key]; ok {
		return v
	}
	return def
}

// AdjustWeight recomputes CurrentWeight. XP always adds weight; caretakers
// gain weight when capacity is low and healers when shadow is high.
func (a *Archetype) AdjustWeight(s State) {
	w := a.DefaultWeight + s.XP*a.factor("xp", defaultXPFactor)

	name := strings.ToLower(a.Name)
	if s.Capacity < 0.4 && strings.Contains(name, "caretaker") {
		w += a.factor("capacity", defaultCapacityFactor)
	}
	if s.ShadowScore > 0.7 && strings.Contains(name, "healer") {
		w += a.factor("shadow", defaultShadowFactor)
	}
	a.CurrentWeight = w
}

func (a *Archetype) clone() *Archetype {
	c := *a
	c.TagBias = slices.Clone(a.TagBias)
	if a.ContextFactors != nil {
		c.ContextFactors = make(map[string]float64, len(a.ContextFactors))
		for k, v := range a.ContextFactors {
			c.ContextFactors[k] = v
		}
	}
	return &c
}

func (a *Archetype) validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("archetype name is required")
	}
	if a.DefaultWeight < 0 {
		return fmt.Errorf("archetype %q: default_weight must not be negative", a.Name)
	}
	return nil
}

// Influence is the tone the active archetypes lend to a reply.
type Influence struct {
	TransformationStyle string   `json:"transformation_style"`
	TagBias             []string `json:"tag_bias"`
	Dominant            string   `json:"dominant,omitempty"`
}

// Manager holds one user's archetypes and which of them are active.
type Manager struct {
	Archetypes []*Archetype `json:"archetypes"`
	Active     []string     `json:"active_archetypes"`
}

func NewManager() *Manager {
	return &Manager{Archetypes: []*Archetype{}, Active: []string{}}
}

// Load replaces the archetypes with copies of defs and activates all of them.
func (m *Manager) Load(defs []Archetype) {
	m.Archetypes = make([]*Archetype, 0, len(defs))
	m.Active = make([]string, 0, len(defs))
	for i := range defs {
		a := defs[i].clone()
		a.CurrentWeight = a.DefaultWeight
		m.Archetypes = append(m.Archetypes, a)
		m.Active = append(m.Active, a.Name)
	}
	slog.Debug("archetypes loaded", "count", len(m.Archetypes))
}

func (m *Manager) Get(name string) *Archetype {
	for _, a := range m.Archetypes {
		if strings.EqualFold(a.Name, name) {
			return a
		}
	}
	return nil
}

// SetActive narrows the active set to the named archetype.
func (m *Manager) SetActive(name string) bool {
	a := m.Get(name)
	if a == nil {
		slog.Warn("archetype not found", "name", name)
		return false
	}
	m.Active = []string{a.Name}
	return true
}

// Update reweighs every archetype and activates those at or above the
// activation threshold, or only the strongest when none qualify.
func (m *Manager) Update(s State) {
	if len(m.Archetypes) == 0 {
		return
	}

	var active []string
	top := m.Archetypes[0]
	for _, a := range m.Archetypes {
		a.AdjustWeight(s)
		if a.CurrentWeight >= ActivationThreshold {
			active = append(active, a.Name)
		}
		if a.CurrentWeight > top.CurrentWeight {
			top = a
		}
	}
	if len(active) == 0 {
		active = []string{top.Name}
	}
	m.Active = active
	slog.Debug("active archetypes updated", "active", active)
}

func (m *Manager) active() []*Archetype {
	var out []*Archetype
	for _, name := range m.Active {
		if a := m.Get(name); a != nil {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b *Archetype) int {
		return cmp.Compare(b.CurrentWeight, a.CurrentWeight)
	})
	return out
}

// Influence returns the dominant archetype's style when it outweighs the
// runner-up by DominanceFactor, otherwise a weighted blend of all active ones.
func (m *Manager) Influence() Influence {
	active := m.active()
	if len(active) == 0 {
		return Influence{TransformationStyle: "neutral", TagBias: []string{}}
	}

	lead := active[0]
	if len(active) == 1 || lead.CurrentWeight >= DominanceFactor*active[1].CurrentWeight {
		return Influence{
			TransformationStyle: lead.TransformationStyle,
			TagBias:             slices.Clone(lead.TagBias),
			Dominant:            lead.Name,
		}
	}

	styles := make([]string, 0, len(active))
	tags := []string{}
	for _, a := range active {
		styles = append(styles, fmt.Sprintf("%s (%.2f)", a.TransformationStyle, a.CurrentWeight))
		for _, t := range a.TagBias {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	return Influence{TransformationStyle: strings.Join(styles, " / "), TagBias: tags}
}

// Leading returns the name of the heaviest active archetype, or "".
func (m *Manager) Leading() string {
	if active := m.active(); len(active) > 0 {
		return active[0].Name
	}
	return ""
}
