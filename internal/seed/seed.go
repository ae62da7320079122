// Package seed manages the user's seeds: named intentions that each own an HTA tree.
package seed

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"forest.app/forest/internal/hta"
)

const (
	StatusActive  = "active"
	StatusEvolved = "evolved"
)

// Evolution types accepted by Manager.Evolve.
const (
	EvolutionReframe        = "reframe"
	EvolutionExpansion      = "expansion"
	EvolutionTransformation = "transformation"
)

var (
	ErrSeedNotFound      = errors.New("seed not found")
	ErrIntentionRequired = errors.New("evolution requires a new intention")
	ErrUnknownEvolution  = errors.New("unknown evolution type")
)

type Seed struct {
	ID                   string    `json:"seed_id"`
	Name                 string    `json:"seed_name"`
	Domain               string    `json:"seed_domain"`
	Form                 string    `json:"seed_form"`
	Description          string    `json:"description"`
	EmotionalRootTags    []string  `json:"emotional_root_tags"`
	ShadowTrigger        string    `json:"shadow_trigger"`
	AssociatedArchetypes []string  `json:"associated_archetypes"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"created_at"`
	HTATree              *hta.Tree `json:"hta_tree,omitempty"`
}

// New returns an active seed with a fresh id.
func New(name, domain, description string) *Seed {
	return &Seed{
		ID:                   uuid.NewString(),
		Name:                 name,
		Domain:               domain,
		Description:          description,
		EmotionalRootTags:    []string{},
		AssociatedArchetypes: []string{},
		Status:               StatusActive,
		CreatedAt:            time.Now().UTC(),
	}
}

// Context carries the optional attributes used when planting a seed.
type Context struct {
	Form                 string
	EmotionalRootTags    []string
	ShadowTrigger        string
	AssociatedArchetypes []string
}

// Manager holds a user's seeds in creation order.
type Manager struct {
	Seeds []*Seed `json:"seeds"`
}

func NewManager() *Manager {
	return &Manager{Seeds: []*Seed{}}
}

// Add appends s. A seed whose id is already present is ignored.
func (m *Manager) Add(s *Seed) {
	if m.Get(s.ID) != nil {
		slog.Warn("seed already exists, skipping", "seed_id", s.ID)
		return
	}
	m.Seeds = append(m.Seeds, s)
}

func (m *Manager) Remove(id string) bool {
	before := len(m.Seeds)
	m.Seeds = slices.DeleteFunc(m.Seeds, func(s *Seed) bool { return s.ID == id })
	return len(m.Seeds) < before
}

func (m *Manager) Get(id string) *Seed {
	for _, s := range m.Seeds {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (m *Manager) All() []*Seed {
	return m.Seeds
}

// Active returns the first active seed, or nil.
func (m *Manager) Active() *Seed {
	for _, s := range m.Seeds {
		if strings.EqualFold(s.Status, StatusActive) {
			return s
		}
	}
	return nil
}

// Update is a partial update; nil fields are left untouched.
type Update struct {
	Name        *string
	Domain      *string
	Description *string
	Status      *string
	HTATree     *hta.Tree
}

func (m *Manager) Update(id string, u Update) error {
	s := m.Get(id)
	if s == nil {
		return fmt.Errorf("updating %q: %w", id, ErrSeedNotFound)
	}
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Domain != nil {
		s.Domain = *u.Domain
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.HTATree != nil {
		s.HTATree = u.HTATree
	}
	return nil
}

// Plant creates a seed from a raw intention with a single-node HTA tree and adds it.
func (m *Manager) Plant(intention, domain string, c Context) *Seed {
	s := New(PlantedName(intention), domain, intention)
	s.Form = c.Form
	if s.Form == "" {
		s.Form = "A newly planted seedling."
	}
	if c.EmotionalRootTags != nil {
		s.EmotionalRootTags = c.EmotionalRootTags
	}
	s.ShadowTrigger = c.ShadowTrigger
	if c.AssociatedArchetypes != nil {
		s.AssociatedArchetypes = c.AssociatedArchetypes
	}
	s.HTATree = hta.NewTree(hta.NewNode(uuid.NewString(), s.Name, s.Description, 1.0))

	m.Add(s)
	return s
}

// PlantedName is "Seed of " followed by the first 20 characters of the
// intention, trimmed, with only the first letter upper-cased.
func PlantedName(intention string) string {
	r := []rune(intention)
	if len(r) > 20 {
		r = r[:20]
	}
	return "Seed of " + capitalize(strings.TrimSpace(string(r)))
}

func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Evolve applies an evolution to the seed.
func (m *Manager) Evolve(id, evolution, intention string) error {
	s := m.Get(id)
	if s == nil {
		return fmt.Errorf("evolving %q: %w", id, ErrSeedNotFound)
	}

	switch strings.ToLower(evolution) {
	case EvolutionReframe:
		if intention == "" {
			return ErrIntentionRequired
		}
		s.Description = intention
	case EvolutionExpansion:
		if intention == "" {
			return ErrIntentionRequired
		}
		s.Description += "\nExpanded: " + intention
	case EvolutionTransformation:
		s.Status = StatusEvolved
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvolution, evolution)
	}

	slog.Info("seed evolved", "seed_id", s.ID, "evolution", evolution)
	return nil
}

// Summary lists active seeds as "name (domain)" joined by " • ".
func (m *Manager) Summary() string {
	var parts []string
	for _, s := range m.Seeds {
		if strings.EqualFold(s.Status, StatusActive) {
			parts = append(parts, fmt.Sprintf("%s (%s)", s.Name, s.Domain))
		}
	}
	if len(parts) == 0 {
		return "No active seeds."
	}
	return strings.Join(parts, " • ")
}
