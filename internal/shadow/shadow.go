// Package shadow scores reflections for shadow cues using a weighted
// lexicon and a few phrase patterns.
package shadow

import (
	"cmp"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"

	"forest.app/forest/internal/domain"
)

var defaultLexicon = map[string]float64{
	"bitterness": 0.8,
	"avoid":      0.7,
	"burnout":    0.9,
	"rigid":      0.6,
	"shame":      0.7,
	"resent":     0.8,
	"self-hate":  0.9,
	"fearful":    0.6,
	"hopeless":   0.8,
	"despair":    0.9,
	"guilt":      0.7,
}

var negations = map[string]bool{"not": true, "never": true, "no": true}

type phrase struct {
	tag    string
	re     *regexp.Regexp
	weight float64
}

var phrases = []phrase{
	{tag: "cant_seem_to", re: regexp.MustCompile(`\bi can'?t seem to\b`), weight: 0.3},
	{tag: "stuck", re: regexp.MustCompile(`\bstuck (in|on)\b`), weight: 0.3},
	{tag: "whats_the_point", re: regexp.MustCompile(`\bwhat'?s the point\b`), weight: 0.4},
}

// Context adjusts weights for the user's current state. Sentiment is only
// applied when non-nil.
type Context struct {
	Capacity       float64
	ResonanceTheme string
	Sentiment      *float64
}

type Result struct {
	Score float64            `json:"shadow_score"`
	Tags  map[string]float64 `json:"shadow_tags"`
}

// TopTags returns up to n tags with the highest positive weight.
func (r Result) TopTags(n int) []string {
	tags := slices.Collect(maps.Keys(r.Tags))
	tags = slices.DeleteFunc(tags, func(t string) bool { return r.Tags[t] <= 0 })
	slices.SortFunc(tags, func(a, b string) int {
		return cmp.Or(cmp.Compare(r.Tags[b], r.Tags[a]), cmp.Compare(a, b))
	})
	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}

// Engine is persisted per user so lexicon overrides survive between
// reflections.
type Engine struct {
	Lexicon    map[string]float64 `json:"lexicon"`
	LastUpdate *time.Time         `json:"last_update,omitempty"`
}

func New() *Engine {
	return &Engine{Lexicon: maps.Clone(defaultLexicon)}
}

// Override merges persisted lexicon weights over the defaults.
func (e *Engine) Override(lexicon map[string]float64) {
	if e.Lexicon == nil {
		e.Lexicon = map[string]float64{}
	}
	maps.Copy(e.Lexicon, lexicon)
}

// AnalyzeAt scores text like Analyze and stamps the engine with now.
func (e *Engine) AnalyzeAt(text string, ctx *Context, now time.Time) Result {
	r := e.Analyze(text, ctx)
	at := now.UTC()
	e.LastUpdate = &at
	return r
}

func (e *Engine) weights(ctx *Context) map[string]float64 {
	w := maps.Clone(e.Lexicon)
	if ctx == nil {
		return w
	}
	if ctx.Capacity < 0.3 {
		for _, k := range []string{"burnout", "hopeless", "despair"} {
			if v, ok := w[k]; ok {
				w[k] = v * 1.2
			}
		}
	}
	if strings.EqualFold(ctx.ResonanceTheme, "reset") {
		if v, ok := w["rigid"]; ok {
			w["rigid"] = v * 0.8
		}
	}
	return w
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	for i, f := range fields {
		fields[i] = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) && r != '-' && r != '\''
		})
	}
	return fields
}

// Analyze scores text. A nil context applies no adjustments.
func (e *Engine) Analyze(text string, ctx *Context) Result {
	lower := strings.ToLower(text)
	words := tokenize(text)
	weights := e.weights(ctx)

	tags := make(map[string]float64)
	total := 0.0

	for i := 0; i < len(words); i++ {
		word := words[i]
		if negations[word] {
			if i+1 < len(words) {
				if w, ok := weights[words[i+1]]; ok {
					tags[words[i+1]] -= w
					total -= w
					i++
				}
			}
			continue
		}
		if w, ok := weights[word]; ok {
			tags[word] += w
			total += w
		}
	}

	for _, p := range phrases {
		if n := len(p.re.FindAllStringIndex(lower, -1)); n > 0 {
			inc := p.weight * float64(n)
			tags[p.tag] += inc
			total += inc
		}
	}

	if ctx != nil && ctx.Sentiment != nil {
		s := *ctx.Sentiment
		if s < 0 {
			s = -s
		}
		total += s * 0.5
	}

	abs := total
	if abs < 0 {
		abs = -abs
	}
	normalized := max(abs/float64(len(words)+1), abs/10)
	score := domain.Round(domain.Clamp01(normalized), 2)

	slog.Debug("shadow analysis complete", "raw_score", total, "shadow_score", score, "tags", len(tags))
	return Result{Score: score, Tags: tags}
}
