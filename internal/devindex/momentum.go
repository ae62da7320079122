package devindex

import "forest.app/forest/internal/domain"

const MomentumAlpha = 0.3

// Momentum is an exponentially weighted average of task outcomes, 1 for a
// success and 0 for a failure.
type Momentum struct {
	Value float64 `json:"momentum"`
}

func NewMomentum() *Momentum {
	return &Momentum{Value: 1.0}
}

// Observe folds one task outcome in and returns the new momentum.
func (m *Momentum) Observe(success bool) float64 {
	x := 0.0
	if success {
		x = 1.0
	}
	m.Value = domain.Clamp01(MomentumAlpha*x + (1-MomentumAlpha)*m.Value)
	return m.Value
}
