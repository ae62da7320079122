// Package reward tracks readiness for a reward and turns the user's wants
// into an offering once enough progress has built up.
package reward

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"time"

	"forest.app/forest/internal/domain"
)

const (
	OfferingThreshold  = 0.7
	CompletionBoost    = 0.1
	OfferingCost       = 0.3
	TopDesires         = 2
	DefaultSuggestions = 3
	ReinforcementStep  = 0.1
)

type Index struct {
	Readiness    float64 `json:"readiness"`
	Generosity   float64 `json:"generosity"`
	DesireSignal float64 `json:"desire_signal"`
}

func New() *Index {
	return &Index{Readiness: 0.5, Generosity: 0.5, DesireSignal: 0.5}
}

// RecordCompletion raises readiness after a successful task. Higher
// generosity makes rewards come sooner.
func (x *Index) RecordCompletion(success bool) {
	if !success {
		return
	}
	x.Readiness = domain.Clamp01(x.Readiness + CompletionBoost*(0.5+x.Generosity))
}

type Offering struct {
	Desires     []string  `json:"desires"`
	Suggestions []string  `json:"suggestions"`
	OfferedAt   time.Time `json:"offered_at"`
}

var templates = []string{
	"Set aside an hour this week for %s.",
	"Take one small, real step toward %s today.",
	"Celebrate your progress with something that reminds you of %s.",
}

// Offer returns an offering built from the strongest wants when readiness has
// reached OfferingThreshold, and spends part of the readiness. It returns nil
// when not ready or when wants is empty. Chosen wants are reinforced in place.
func (x *Index) Offer(wants map[string]float64, at time.Time) *Offering {
	if x.Readiness < OfferingThreshold || len(wants) == 0 {
		return nil
	}

	keys := slices.Collect(maps.Keys(wants))
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Or(cmp.Compare(wants[b], wants[a]), cmp.Compare(a, b))
	})
	top := keys[:min(TopDesires, len(keys))]

	suggestions := make([]string, 0, DefaultSuggestions)
	for i := 0; i < DefaultSuggestions; i++ {
		suggestions = append(suggestions, fmt.Sprintf(templates[i%len(templates)], top[i%len(top)]))
	}

	signal := 0.0
	for _, w := range top {
		signal += wants[w]
		wants[w] = domain.Clamp01(wants[w] + ReinforcementStep)
	}
	x.DesireSignal = domain.Clamp01(signal / float64(len(top)))
	x.Readiness = domain.Clamp01(x.Readiness - OfferingCost)

	return &Offering{Desires: slices.Clone(top), Suggestions: suggestions, OfferedAt: at.UTC()}
}
