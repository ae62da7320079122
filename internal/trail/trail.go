// Package trail records the notable moments of a user's journey as trails
// of events.
package trail

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"
)

type EventType string

const (
	EventBench     EventType = "bench"     // a reflective pause
	EventLightning EventType = "lightning" // a quick, energizing action
	EventWonder    EventType = "wonder"    // a moment of insight
	EventWildPath  EventType = "wild_path" // an unplanned branch
)

func (t EventType) Valid() bool {
	switch t {
	case EventBench, EventLightning, EventWonder, EventWildPath:
		return true
	}
	return false
}

var (
	ErrTrailNotFound    = errors.New("trail not found")
	ErrInvalidEventType = errors.New("invalid trail event type")
)

type Event struct {
	Type        EventType      `json:"event_type"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
	Timestamp   time.Time      `json:"timestamp"`
}

type Trail struct {
	ID          string    `json:"trail_id"`
	Type        string    `json:"trail_type"`
	Description string    `json:"description"`
	Events      []Event   `json:"events"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Manager struct {
	Trails map[string]*Trail `json:"trails"`
	now    func() time.Time
}

func NewManager() *Manager {
	return &Manager{Trails: make(map[string]*Trail), now: func() time.Time { return time.Now().UTC() }}
}

func (m *Manager) clock() time.Time {
	if m.now == nil {
		return time.Now().UTC()
	}
	return m.now()
}

// Create starts a new trail. Its id is derived from the description and the
// creation time.
func (m *Manager) Create(trailType, description string) *Trail {
	if m.Trails == nil {
		m.Trails = make(map[string]*Trail)
	}
	now := m.clock()
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%s", description, now.Format(time.RFC3339Nano))))
	t := &Trail{
		ID:          hex.EncodeToString(sum[:])[:8],
		Type:        trailType,
		Description: description,
		Events:      []Event{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.Trails[t.ID] = t
	slog.Debug("trail created", "trail_id", t.ID, "trail_type", trailType)
	return t
}

func (m *Manager) Get(id string) (*Trail, error) {
	t, ok := m.Trails[id]
	if !ok {
		return nil, fmt.Errorf("trail %q: %w", id, ErrTrailNotFound)
	}
	return t, nil
}

// FindByDescription returns the first trail with the given type and description.
func (m *Manager) FindByDescription(trailType, description string) *Trail {
	for _, t := range m.List() {
		if t.Type == trailType && t.Description == description {
			return t
		}
	}
	return nil
}

// AddEvent appends an event. objectClass, when set, is stored in the metadata.
func (m *Manager) AddEvent(trailID string, typ EventType, description string, metadata map[string]any, objectClass string) error {
	if !typ.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEventType, typ)
	}
	t, err := m.Get(trailID)
	if err != nil {
		return err
	}
	md := maps.Clone(metadata)
	if md == nil {
		md = map[string]any{}
	}
	if objectClass != "" {
		md["object_class"] = objectClass
	}
	now := m.clock()
	t.Events = append(t.Events, Event{Type: typ, Description: description, Metadata: md, Timestamp: now})
	t.UpdatedAt = now
	return nil
}

// UpdateEvent replaces the event at index.
func (m *Manager) UpdateEvent(trailID string, index int, e Event) error {
	t, err := m.Get(trailID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(t.Events) {
		return fmt.Errorf("trail %q has no event %d", trailID, index)
	}
	t.Events[index] = e
	t.UpdatedAt = m.clock()
	return nil
}

// List returns trails ordered by creation time.
func (m *Manager) List() []*Trail {
	trails := slices.Collect(maps.Values(m.Trails))
	slices.SortFunc(trails, func(a, b *Trail) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return trails
}
