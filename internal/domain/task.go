package domain

import "time"

// Tier is the growth tier a task is issued at. Higher tiers award more XP.
type Tier string

const (
	TierBud     Tier = "Bud"
	TierBloom   Tier = "Bloom"
	TierBlossom Tier = "Blossom"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierBud, TierBloom, TierBlossom:
		return true
	}
	return false
}

// OrDefault returns TierBud for empty or unknown tiers.
func (t Tier) OrDefault() Tier {
	if t.Valid() {
		return t
	}
	return TierBud
}

// Path is the scheduling mode a user follows. It drives soft deadlines and withering.
type Path string

const (
	PathStructured Path = "structured"
	PathBlended    Path = "blended"
	PathOpen       Path = "open"
)

// Task is a unit of work issued to the user, usually derived from an HTA node.
type Task struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	Tier                Tier           `json:"tier"`
	Magnitude           float64        `json:"magnitude"`
	HTANodeID           string         `json:"hta_node_id,omitempty"`
	RelevantIndexes     []string       `json:"relevant_indexes,omitempty"`
	SoftDeadline        string         `json:"soft_deadline,omitempty"`
	IntrospectivePrompt string         `json:"introspective_prompt,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
}

// HTADepth returns the hta_depth metadata value, or -1 when absent.
func (t Task) HTADepth() int {
	switch v := t.Metadata["hta_depth"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return -1
}
