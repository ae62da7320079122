// Package withering tracks how much the user's forest has dried out from
// inactivity and overdue tasks.
package withering

import (
	"strings"
	"time"

	"forest.app/forest/internal/deadline"
	"forest.app/forest/internal/domain"
)

const (
	Decay            = 0.98
	CompletionRelief = 0.15
)

var idleCoefficients = map[domain.Path]float64{
	domain.PathStructured: 0.025,
	domain.PathBlended:    0.015,
	domain.PathOpen:       0.0,
}

var overdueCoefficients = map[domain.Path]float64{
	domain.PathStructured: 0.012,
	domain.PathBlended:    0.005,
	domain.PathOpen:       0.0,
}

// IdleCoefficient is the per-idle-hour growth for a path. Unknown paths grow
// at the structured rate; "hybrid" is read as blended.
func IdleCoefficient(path domain.Path) float64 {
	if c, ok := idleCoefficients[normalize(path)]; ok {
		return c
	}
	return idleCoefficients[domain.PathStructured]
}

func OverdueCoefficient(path domain.Path) float64 {
	return overdueCoefficients[normalize(path)]
}

func normalize(path domain.Path) domain.Path {
	p := domain.Path(strings.ToLower(strings.TrimSpace(string(path))))
	if p == "hybrid" {
		return domain.PathBlended
	}
	return p
}

type Input struct {
	Level        float64
	Path         domain.Path
	LastActivity time.Time // zero means no recorded activity
	Backlog      []domain.Task
	Now          time.Time
}

// Update returns the new withering level. Idle time since LastActivity and
// the worst overdue task both push the level up, then it decays by 2%.
func Update(in Input) float64 {
	path := normalize(in.Path)

	idleHours := 0.0
	if !in.LastActivity.IsZero() && in.Now.After(in.LastActivity) {
		idleHours = in.Now.Sub(in.LastActivity).Hours()
	}
	idle := IdleCoefficient(path) * idleHours

	soft := 0.0
	if path != domain.PathOpen {
		soft = OverdueCoefficient(path) * deadline.MaxOverdueHours(in.Backlog, in.Now)
	}

	w := domain.Clamp01(in.Level + idle + soft)
	return domain.Clamp01(w * Decay)
}

// Relieve lowers the level after a completed task.
func Relieve(level float64) float64 {
	return domain.Clamp01(level - CompletionRelief)
}
