// Package relational tracks the people in a user's life and suggests ways to
// repair or deepen those connections.
package relational

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"

	"forest.app/forest/internal/domain"
)

const (
	DefaultLoveLanguage    = "Words of Affirmation"
	DefaultConnectionScore = 5.0
	DefaultTag             = "compassion"
	MaxScore               = 10.0
	SignalStep             = 0.1
	// MaxMentions caps how many people one reflection can touch.
	MaxMentions = 3
)

type Tone string

const (
	ToneCautious Tone = "Cautious"
	ToneGentle   Tone = "Gentle"
	ToneOpen     Tone = "Open"
)

func (t Tone) Valid() bool {
	return t == ToneCautious || t == ToneGentle || t == ToneOpen
}

// ParseTone matches s against the known tones ignoring case.
func ParseTone(s string) (Tone, bool) {
	for _, t := range []Tone{ToneCautious, ToneGentle, ToneOpen} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, true
		}
	}
	return "", false
}

type Scale string

const (
	ScaleSmall  Scale = "Small"
	ScaleMedium Scale = "Medium"
	ScaleLarge  Scale = "Large"
)

func (s Scale) Valid() bool {
	return s == ScaleSmall || s == ScaleMedium || s == ScaleLarge
}

type Profile struct {
	Name            string             `json:"name"`
	EmotionalTags   map[string]float64 `json:"emotional_tags"`
	LoveLanguage    string             `json:"love_language"`
	LastGifted      *string            `json:"last_gifted"`
	ConnectionScore float64            `json:"connection_score"`
}

func NewProfile(name string) *Profile {
	return &Profile{
		Name:            name,
		EmotionalTags:   map[string]float64{},
		LoveLanguage:    DefaultLoveLanguage,
		ConnectionScore: DefaultConnectionScore,
	}
}

// UpdateEmotionalTags adds each delta to its tag, clamped to [0,10].
func (p *Profile) UpdateEmotionalTags(deltas map[string]float64) {
	if p.EmotionalTags == nil {
		p.EmotionalTags = map[string]float64{}
	}
	for tag, delta := range deltas {
		p.EmotionalTags[tag] = domain.Round(domain.Clamp(p.EmotionalTags[tag]+delta, 0, MaxScore), 2)
	}
}

func (p *Profile) UpdateConnectionScore(delta float64) {
	p.ConnectionScore = domain.Clamp(p.ConnectionScore+delta, 0, MaxScore)
}

// UpdateLoveLanguage ignores empty values.
func (p *Profile) UpdateLoveLanguage(lang string) {
	if strings.TrimSpace(lang) == "" {
		return
	}
	p.LoveLanguage = lang
}

// DominantTag returns the strongest emotional tag, or DefaultTag when there
// are none. Ties resolve alphabetically.
func (p *Profile) DominantTag() string {
	if len(p.EmotionalTags) == 0 {
		return DefaultTag
	}
	tags := slices.Sorted(maps.Keys(p.EmotionalTags))
	return slices.MaxFunc(tags, func(a, b string) int {
		// MaxFunc keeps the first maximum, so reverse the name order.
		return cmp.Or(cmp.Compare(p.EmotionalTags[a], p.EmotionalTags[b]), cmp.Compare(b, a))
	})
}

type RepairAction struct {
	Recipient    string `json:"recipient"`
	Tone         Tone   `json:"tone"`
	RepairAction string `json:"repair_action"`
	Scale        Scale  `json:"scale,omitempty"`
	EmotionalTag string `json:"emotional_tag,omitempty"`
	ContextHint  string `json:"context_hint"`
}

// StaticRepair picks a repair gesture from the connection score alone.
func StaticRepair(p *Profile, contextHint string) RepairAction {
	tag := p.DominantTag()
	var (
		tone   Tone
		action string
	)
	switch {
	case p.ConnectionScore < 3:
		tone = ToneCautious
		action = fmt.Sprintf("Write an unsent letter expressing %s in reflection.", tag)
	case p.ConnectionScore < 7:
		tone = ToneGentle
		action = fmt.Sprintf("Send a brief, heartfelt note focusing on %s.", tag)
	default:
		tone = ToneOpen
		action = fmt.Sprintf("Reach out for a conversation inspired by %s.", tag)
	}
	return RepairAction{
		Recipient:    p.Name,
		Tone:         tone,
		RepairAction: action,
		EmotionalTag: tag,
		ContextHint:  contextHint,
	}
}

type Signals struct {
	Support  float64 `json:"support"`
	Conflict float64 `json:"conflict"`
	Feedback string  `json:"feedback"`
}

// Net is the combined signal; conflict is already negative.
func (s Signals) Net() float64 {
	return domain.Round(s.Support+s.Conflict, 2)
}

const noSignals = "No significant relational signals detected."

var (
	supportWords  = wordPatterns("support", "helped", "appreciated", "cared", "kind")
	conflictWords = wordPatterns("argued", "conflict", "hurt", "ignored", "criticized")
)

func wordPatterns(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`\b` + w + `\b`)
	}
	return out
}

func countMatches(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, re := range patterns {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

// AnalyzeReflection scores supportive and conflictual language. Each distinct
// keyword counts once.
func AnalyzeReflection(text string) Signals {
	if strings.TrimSpace(text) == "" {
		return Signals{Feedback: noSignals}
	}
	lower := strings.ToLower(text)
	s := Signals{
		Support:  domain.Round(SignalStep*float64(countMatches(lower, supportWords)), 2),
		Conflict: domain.Round(-SignalStep*float64(countMatches(lower, conflictWords)), 2),
	}
	switch {
	case s.Support > 0 && s.Conflict == 0:
		s.Feedback = "Positive relational signals detected."
	case s.Conflict < 0 && s.Support == 0:
		s.Feedback = "Negative relational signals detected."
	case s.Support > 0 && s.Conflict < 0:
		s.Feedback = "Mixed relational signals detected."
	default:
		s.Feedback = noSignals
	}
	return s
}

// ProfileUpdate describes a change to a profile. Fields left nil are not
// touched.
type ProfileUpdate struct {
	Name                 string             `json:"name"`
	EmotionalTags        map[string]float64 `json:"emotional_tags,omitempty"`
	LoveLanguage         *string            `json:"love_language,omitempty"`
	ConnectionScoreDelta *float64           `json:"connection_score_delta,omitempty"`
}

type Manager struct {
	Profiles map[string]*Profile `json:"profiles"`
}

func NewManager() *Manager {
	return &Manager{Profiles: map[string]*Profile{}}
}

// Upsert creates the profile on first sight and applies the update otherwise.
func (m *Manager) Upsert(u ProfileUpdate) (*Profile, error) {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return nil, fmt.Errorf("profile name is required")
	}
	if m.Profiles == nil {
		m.Profiles = map[string]*Profile{}
	}

	p, ok := m.Profiles[name]
	if !ok {
		p = NewProfile(name)
		m.Profiles[name] = p
		for tag, v := range u.EmotionalTags {
			p.EmotionalTags[tag] = domain.Clamp(v, 0, MaxScore)
		}
	} else {
		p.UpdateEmotionalTags(u.EmotionalTags)
	}
	if u.LoveLanguage != nil {
		p.UpdateLoveLanguage(*u.LoveLanguage)
	}
	if u.ConnectionScoreDelta != nil {
		p.UpdateConnectionScore(*u.ConnectionScoreDelta)
	}
	slog.Debug("relational profile updated", "profile", name)
	return p, nil
}

func (m *Manager) Get(name string) (*Profile, bool) {
	p, ok := m.Profiles[name]
	return p, ok
}

// Names returns profile names in sorted order.
func (m *Manager) Names() []string {
	return slices.Sorted(maps.Keys(m.Profiles))
}

var (
	mentionRe = regexp.MustCompile(`\b(?:with|to|for|from|and|called|texted|visited|met|saw|told|asked|thanked)\s+([A-Z][a-z]+(?:-[A-Z][a-z]+)?)\b`)

	notNames = map[string]bool{
		"I": true, "Me": true, "The": true, "A": true, "An": true,
		"Today": true, "Tomorrow": true, "Yesterday": true, "Monday": true, "Tuesday": true,
		"Wednesday": true, "Thursday": true, "Friday": true, "Saturday": true, "Sunday": true,
		"God": true, "Work": true, "Forest": true,
	}
)

// MentionedNames returns the people a reflection talks about: known profile
// names found anywhere in the text, then capitalized names that follow a
// relational verb or preposition. Known names keep their stored spelling.
// At most MaxMentions names are returned.
func MentionedNames(text string, known []string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(name string) {
		key := strings.ToLower(name)
		if seen[key] || len(out) >= MaxMentions {
			return
		}
		seen[key] = true
		out = append(out, name)
	}

	lower := strings.ToLower(text)
	for _, name := range known {
		if regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(name)) + `\b`).MatchString(lower) {
			add(name)
		}
	}
	for _, m := range mentionRe.FindAllStringSubmatch(text, -1) {
		if !notNames[m[1]] {
			add(m[1])
		}
	}
	return out
}
