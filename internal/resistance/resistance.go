// Package resistance estimates how hard a task will feel.
package resistance

import "forest.app/forest/internal/domain"

// Compute returns resistance in [0, 1] from shadow, capacity and momentum
// (all in [0, 1]) and magnitude in [1, 10].
func Compute(shadow, capacity, momentum, magnitude float64) float64 {
	r := 0.4 + 0.5*shadow - 0.3*capacity - 0.2*momentum + 0.05*(magnitude-5)
	return domain.Clamp01(r)
}
