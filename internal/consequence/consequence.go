// Package consequence tracks real-world pressure (time, energy, money,
// relationships, safety) signalled by reflections and missed deadlines.
package consequence

import (
	"log/slog"
	"strings"

	"forest.app/forest/internal/domain"
)

const DeadlinePenalty = 0.05

type Calibration struct {
	BaseWeight       float64 `json:"base_weight"`
	TimeWeight       float64 `json:"time_weight"`
	EnergyWeight     float64 `json:"energy_weight"`
	MoneyWeight      float64 `json:"money_weight"`
	RelationalWeight float64 `json:"relational_weight"`
	SafetyWeight     float64 `json:"safety_weight"`
}

func DefaultCalibration() Calibration {
	return Calibration{
		BaseWeight:       1.0,
		TimeWeight:       0.25,
		EnergyWeight:     0.25,
		MoneyWeight:      0.20,
		RelationalWeight: 0.15,
		SafetyWeight:     0.15,
	}
}

type signal struct {
	raise, ease []string
}

var (
	timeSignal       = signal{raise: []string{"rush", "deadline"}, ease: []string{"delay", "waiting"}}
	energySignal     = signal{raise: []string{"tired", "exhausted"}, ease: []string{"energized", "motivated"}}
	moneySignal      = signal{raise: []string{"money", "debt"}, ease: []string{"affluent", "wealth"}}
	relationalSignal = signal{raise: []string{"lonely", "isolated", "argument"}, ease: []string{"supported", "connected"}}
	safetySignal     = signal{raise: []string{"unsafe", "fear"}, ease: []string{"secure", "protected"}}
)

func (s signal) adjustment(text string) float64 {
	adj := 0.0
	if containsAny(text, s.raise) {
		adj += 0.1
	}
	if containsAny(text, s.ease) {
		adj -= 0.05
	}
	return adj
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

type Engine struct {
	Calibration Calibration `json:"calibration"`
	Score       float64     `json:"score"`
}

func New() *Engine {
	return &Engine{Calibration: DefaultCalibration(), Score: 0.5}
}

// UpdateFromReflection moves the score by the weighted keyword signals.
func (e *Engine) UpdateFromReflection(reflection string) {
	text := strings.ToLower(reflection)
	c := e.Calibration
	total := c.TimeWeight*timeSignal.adjustment(text) +
		c.EnergyWeight*energySignal.adjustment(text) +
		c.MoneyWeight*moneySignal.adjustment(text) +
		c.RelationalWeight*relationalSignal.adjustment(text) +
		c.SafetyWeight*safetySignal.adjustment(text)

	e.Score = domain.Clamp01(e.Score + c.BaseWeight*total)
	slog.Debug("practical consequence updated", "score", e.Score, "adjustment", total)
}

// ApplyDeadlinePenalties raises the score for each overdue task. Only the
// structured path is penalised.
func (e *Engine) ApplyDeadlinePenalties(path domain.Path, overdue int) {
	if path != domain.PathStructured || overdue <= 0 {
		return
	}
	e.Score = domain.Clamp01(e.Score + DeadlinePenalty*float64(overdue))
}

func (e *Engine) Consequence() float64 {
	return domain.Round(e.Score, 2)
}

func (e *Engine) Level() string {
	switch {
	case e.Score >= 0.8:
		return "High Impact"
	case e.Score >= 0.6:
		return "Moderate Impact"
	case e.Score >= 0.4:
		return "Low Impact"
	default:
		return "Minimal Impact"
	}
}

// DifficultyMultiplier eases tasks as pressure rises.
func (e *Engine) DifficultyMultiplier() float64 {
	return domain.Round(1.0+(1.0-e.Score)*0.5, 2)
}

type Tone struct {
	Empathy       float64 `json:"empathy"`
	Encouragement float64 `json:"encouragement"`
}

func (e *Engine) ToneModifier() Tone {
	switch {
	case e.Score >= 0.8:
		return Tone{Empathy: 1.2, Encouragement: 0.8}
	case e.Score >= 0.6:
		return Tone{Empathy: 1.1, Encouragement: 0.9}
	case e.Score >= 0.4:
		return Tone{Empathy: 1.0, Encouragement: 1.0}
	default:
		return Tone{Empathy: 0.9, Encouragement: 1.1}
	}
}
