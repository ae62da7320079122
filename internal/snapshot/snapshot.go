// Package snapshot holds the per-user memory snapshot document and the flow
// that compresses it into the context injected into LLM prompts.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"forest.app/forest/internal/domain"
	"forest.app/forest/internal/hta"
)

const (
	DefaultRitualMode = "Trail"
	MaxConversation   = 20
	MaxReflectionLog  = 50
	MaxFootprints     = 100
	TimestampLayout   = "2006-01-02T15:04:05.999999"
	emptyObject       = "{}"
)

// Component state keys.
const (
	KeySeedManager        = "seed_manager"
	KeyArchetypeManager   = "archetype_manager"
	KeyDevIndex           = "dev_index"
	KeySentiment          = "sentiment_engine_calibration"
	KeyMetricsEngine      = "metrics_engine"
	KeyPatternConfig      = "pattern_engine_config"
	KeyConsequence        = "practical_consequence"
	KeyEmotionalIntegrity = "emotional_integrity_index"
	KeyFinancial          = "financial_readiness"
	KeyDesire             = "desire_engine"
	KeyRelational         = "relational_manager"
	KeyShadow             = "shadow_engine"
	KeyXPMastery          = "xp_mastery"
	KeyReward             = "reward_index"
	KeyTrail              = "trail_manager"
	KeyLastActivity       = "last_activity_ts"
	KeyLastIssuedTask     = "last_issued_task_id"
	KeyLastRebalancedNode = "last_rebalanced_node_id"
	KeySnapshotFlow       = "snapshot_flow"
)

type ActivatedState struct {
	Activated bool    `json:"activated"`
	Mode      *string `json:"mode"`
	GoalSet   bool    `json:"goal_set"`
}

type CoreState struct {
	HTATree *hta.Tree `json:"hta_tree,omitempty"`
}

type ReflectionContext struct {
	Themes          []string `json:"themes"`
	RecentInsight   string   `json:"recent_insight"`
	CurrentPriority string   `json:"current_priority"`
	RecentIntensity float64  `json:"recent_intensity"`
}

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ReflectionEntry struct {
	Text           string    `json:"text"`
	SentimentScore float64   `json:"sentiment_score"`
	ShadowScore    float64   `json:"shadow_score"`
	Timestamp      time.Time `json:"timestamp"`
}

type Footprint struct {
	TaskID      string    `json:"task_id"`
	Title       string    `json:"title"`
	HTANodeID   string    `json:"hta_node_id,omitempty"`
	Success     bool      `json:"success"`
	XPAwarded   float64   `json:"xp_awarded"`
	CompletedAt time.Time `json:"completed_at"`
}

// Snapshot is the whole of a user's journey state. It is stored as one JSON
// document.
type Snapshot struct {
	XP                float64 `json:"xp"`
	ShadowScore       float64 `json:"shadow_score"`
	Capacity          float64 `json:"capacity"`
	Magnitude         float64 `json:"magnitude"`
	Resistance        float64 `json:"resistance"`
	RelationshipIndex float64 `json:"relationship_index"`

	StoryBeats      []map[string]any   `json:"story_beats"`
	Totems          []map[string]any   `json:"totems"`
	WantsCache      map[string]float64 `json:"wants_cache"`
	PartnerProfiles map[string]any     `json:"partner_profiles"`
	WitheringLevel  float64            `json:"withering_level"`

	ActivatedState ActivatedState `json:"activated_state"`
	CoreState      CoreState      `json:"core_state"`
	DecorState     map[string]any `json:"decor_state"`

	CurrentPath             domain.Path `json:"current_path"`
	CurrentTier             domain.Tier `json:"current_tier"`
	EstimatedCompletionDate *string     `json:"estimated_completion_date"`

	DevIndex         map[string]float64 `json:"dev_index"`
	ArchetypeManager json.RawMessage    `json:"archetype_manager"`
	SeedManager      json.RawMessage    `json:"seed_manager"`
	MemorySystem     json.RawMessage    `json:"memory_system"`
	XPMastery        json.RawMessage    `json:"xp_mastery"`
	HardwareConfig   map[string]any     `json:"hardware_config"`

	ReflectionContext   ReflectionContext `json:"reflection_context"`
	ReflectionLog       []ReflectionEntry `json:"reflection_log"`
	TaskBacklog         []domain.Task     `json:"task_backlog"`
	TaskFootprints      []Footprint       `json:"task_footprints"`
	ConversationHistory []Turn            `json:"conversation_history"`

	ComponentState   map[string]json.RawMessage `json:"component_state"`
	TemplateMetadata map[string]any             `json:"template_metadata"`
	LastRitualMode   string                     `json:"last_ritual_mode"`
	Timestamp        string                     `json:"timestamp"`
}

// New returns a snapshot with every field at its default.
func New(now time.Time) *Snapshot {
	return &Snapshot{
		ShadowScore:         0.5,
		Capacity:            0.5,
		Magnitude:           5.0,
		RelationshipIndex:   0.5,
		StoryBeats:          []map[string]any{},
		Totems:              []map[string]any{},
		WantsCache:          map[string]float64{},
		PartnerProfiles:     map[string]any{},
		DecorState:          map[string]any{},
		CurrentPath:         domain.PathStructured,
		CurrentTier:         domain.TierBud,
		DevIndex:            map[string]float64{},
		ArchetypeManager:    json.RawMessage(emptyObject),
		SeedManager:         json.RawMessage(emptyObject),
		MemorySystem:        json.RawMessage(emptyObject),
		XPMastery:           json.RawMessage(emptyObject),
		HardwareConfig:      map[string]any{"ram": 0, "gpu_vram": 0, "cpu": "Unknown", "neural_engine": "Unknown"},
		ReflectionContext:   ReflectionContext{Themes: []string{}},
		ReflectionLog:       []ReflectionEntry{},
		TaskBacklog:         []domain.Task{},
		TaskFootprints:      []Footprint{},
		ConversationHistory: []Turn{},
		ComponentState:      map[string]json.RawMessage{},
		TemplateMetadata:    map[string]any{},
		LastRitualMode:      DefaultRitualMode,
		Timestamp:           now.UTC().Format(TimestampLayout),
	}
}

// FromJSON decodes a stored document. Missing keys keep their defaults and
// unknown keys are ignored.
func FromJSON(data []byte, now time.Time) (*Snapshot, error) {
	s := New(now)
	if err := s.UpdateFromJSON(data); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateFromJSON overlays the keys present in data onto s.
func (s *Snapshot) UpdateFromJSON(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	s.normalize()
	return nil
}

// normalize replaces nulls read from older documents so callers never see a
// nil collection.
func (s *Snapshot) normalize() {
	if s.WantsCache == nil {
		s.WantsCache = map[string]float64{}
	}
	if s.DevIndex == nil {
		s.DevIndex = map[string]float64{}
	}
	if s.ComponentState == nil {
		s.ComponentState = map[string]json.RawMessage{}
	}
	if s.ConversationHistory == nil {
		s.ConversationHistory = []Turn{}
	}
	if s.TaskBacklog == nil {
		s.TaskBacklog = []domain.Task{}
	}
	if s.ReflectionContext.Themes == nil {
		s.ReflectionContext.Themes = []string{}
	}
	if s.CurrentPath == "" {
		s.CurrentPath = domain.PathStructured
	}
	s.CurrentTier = s.CurrentTier.OrDefault()
	if s.LastRitualMode == "" {
		s.LastRitualMode = DefaultRitualMode
	}
}

func (s *Snapshot) JSON() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Touch stamps the snapshot with now.
func (s *Snapshot) Touch(now time.Time) {
	s.Timestamp = now.UTC().Format(TimestampLayout)
}

// LoadComponent decodes the component state stored under key into v. It
// reports false when the key is absent or holds an empty value.
func (s *Snapshot) LoadComponent(key string, v any) (bool, error) {
	raw, ok := s.ComponentState[key]
	if !ok || isEmpty(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decoding component %q: %w", key, err)
	}
	return true, nil
}

// SaveComponent stores v under key.
func (s *Snapshot) SaveComponent(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding component %q: %w", key, err)
	}
	if s.ComponentState == nil {
		s.ComponentState = map[string]json.RawMessage{}
	}
	s.ComponentState[key] = raw
	return nil
}

func isEmpty(raw json.RawMessage) bool {
	t := string(bytes.TrimSpace(raw))
	return t == "" || t == "null" || t == emptyObject
}

// LastActivity returns the last_activity_ts component, or the zero time.
func (s *Snapshot) LastActivity() time.Time {
	var ts string
	if ok, err := s.LoadComponent(KeyLastActivity, &ts); !ok || err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *Snapshot) SetLastActivity(t time.Time) {
	_ = s.SaveComponent(KeyLastActivity, t.UTC().Format(time.RFC3339Nano))
}

// AppendTurns records a conversation exchange, keeping the newest
// MaxConversation turns.
func (s *Snapshot) AppendTurns(turns ...Turn) {
	s.ConversationHistory = append(s.ConversationHistory, turns...)
	if n := len(s.ConversationHistory); n > MaxConversation {
		s.ConversationHistory = append([]Turn(nil), s.ConversationHistory[n-MaxConversation:]...)
	}
}

// RecentTurns returns up to n of the newest turns, oldest first.
func (s *Snapshot) RecentTurns(n int) []Turn {
	if n >= len(s.ConversationHistory) {
		return s.ConversationHistory
	}
	return s.ConversationHistory[len(s.ConversationHistory)-n:]
}

func (s *Snapshot) AppendReflection(e ReflectionEntry) {
	s.ReflectionLog = append(s.ReflectionLog, e)
	if n := len(s.ReflectionLog); n > MaxReflectionLog {
		s.ReflectionLog = append([]ReflectionEntry(nil), s.ReflectionLog[n-MaxReflectionLog:]...)
	}
}

func (s *Snapshot) AppendFootprint(f Footprint) {
	s.TaskFootprints = append(s.TaskFootprints, f)
	if n := len(s.TaskFootprints); n > MaxFootprints {
		s.TaskFootprints = append([]Footprint(nil), s.TaskFootprints[n-MaxFootprints:]...)
	}
}

// FindTask returns the index of the backlog task with id, or -1.
func (s *Snapshot) FindTask(id string) int {
	for i, t := range s.TaskBacklog {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// RemoveTask deletes the backlog task with id and returns it.
func (s *Snapshot) RemoveTask(id string) (domain.Task, bool) {
	i := s.FindTask(id)
	if i < 0 {
		return domain.Task{}, false
	}
	t := s.TaskBacklog[i]
	s.TaskBacklog = append(s.TaskBacklog[:i], s.TaskBacklog[i+1:]...)
	return t, true
}
