package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

const (
	DefaultFrequency    = 5
	DefaultMaxSnapshots = 10
	TopTagCount         = 3
	NoMemoryState       = "No memory state available."
	NoRecentSnapshot    = "No recent snapshot available."
)

// Compressed is the small view of a snapshot kept for context injection.
type Compressed struct {
	XP             float64            `json:"xp"`
	ShadowScore    float64            `json:"shadow_score"`
	Capacity       float64            `json:"capacity"`
	Magnitude      float64            `json:"magnitude"`
	CurrentSeed    string             `json:"current_seed"`
	TopTags        []string           `json:"top_tags"`
	DevIndex       map[string]float64 `json:"development_indexes"`
	LastRitualMode string             `json:"last_ritual_mode"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Compress builds the compressed view. activeSeed is "None" when empty.
func Compress(s *Snapshot, activeSeed string, at time.Time) Compressed {
	if activeSeed == "" {
		activeSeed = "None"
	}
	tags := s.ReflectionContext.Themes
	if len(tags) > TopTagCount {
		tags = tags[:TopTagCount]
	}
	dev := make(map[string]float64, len(s.DevIndex))
	for k, v := range s.DevIndex {
		dev[k] = v
	}
	return Compressed{
		XP:             s.XP,
		ShadowScore:    s.ShadowScore,
		Capacity:       s.Capacity,
		Magnitude:      s.Magnitude,
		CurrentSeed:    activeSeed,
		TopTags:        append([]string{}, tags...),
		DevIndex:       dev,
		LastRitualMode: s.LastRitualMode,
		Timestamp:      at.UTC(),
	}
}

// ContextString renders a compressed snapshot as the memory block injected
// into prompts.
func ContextString(c *Compressed) string {
	if c == nil {
		return NoMemoryState
	}
	dev, _ := json.Marshal(c.DevIndex)
	lines := []string{
		fmt.Sprintf("XP: %g", c.XP),
		fmt.Sprintf("Shadow Score: %.2f", c.ShadowScore),
		fmt.Sprintf("Capacity: %.2f", c.Capacity),
		fmt.Sprintf("Magnitude: %.2f", c.Magnitude),
		fmt.Sprintf("Current Seed: %s", c.CurrentSeed),
		fmt.Sprintf("Top Tags: %s", strings.Join(c.TopTags, ", ")),
		fmt.Sprintf("Development Indexes: %s", dev),
		fmt.Sprintf("Last Ritual Mode: %s", c.LastRitualMode),
	}
	return strings.Join(lines, "\n")
}

type Record struct {
	Timestamp time.Time  `json:"timestamp"`
	Snapshot  Compressed `json:"snapshot"`
}

// Flow counts submissions and keeps a rotating window of compressed
// snapshots. The zero value is not usable; call NewFlow.
type Flow struct {
	Frequency    int      `json:"frequency"`
	MaxSnapshots int      `json:"max_snapshots"`
	Counter      int      `json:"counter"`
	Records      []Record `json:"snapshots"`
}

func NewFlow() *Flow {
	return &Flow{Frequency: DefaultFrequency, MaxSnapshots: DefaultMaxSnapshots, Records: []Record{}}
}

type SubmissionResult struct {
	Synced             bool        `json:"synced"`
	ContextInjection   string      `json:"context_injection,omitempty"`
	CompressedSnapshot *Compressed `json:"compressed_snapshot,omitempty"`
}

// RegisterSubmission counts one user submission. Every Frequency-th call
// compresses s, stores it and returns the new context.
func (f *Flow) RegisterSubmission(s *Snapshot, activeSeed string, at time.Time) SubmissionResult {
	f.Counter++
	if f.Counter < f.frequency() {
		return SubmissionResult{}
	}
	f.Counter = 0
	c := f.Force(s, activeSeed, at)
	return SubmissionResult{Synced: true, ContextInjection: ContextString(&c), CompressedSnapshot: &c}
}

// Force compresses and stores s regardless of the counter.
func (f *Flow) Force(s *Snapshot, activeSeed string, at time.Time) Compressed {
	c := Compress(s, activeSeed, at)
	f.Store(c)
	slog.Debug("compressed snapshot stored", "records", len(f.Records))
	return c
}

// Store appends c and drops the oldest records beyond MaxSnapshots.
func (f *Flow) Store(c Compressed) {
	f.Records = append(f.Records, Record{Timestamp: c.Timestamp, Snapshot: c})
	if limit := f.maxSnapshots(); len(f.Records) > limit {
		f.Records = append([]Record(nil), f.Records[len(f.Records)-limit:]...)
	}
}

func (f *Flow) Latest() *Compressed {
	if len(f.Records) == 0 {
		return nil
	}
	c := f.Records[len(f.Records)-1].Snapshot
	return &c
}

// LatestContext renders the newest stored snapshot.
func (f *Flow) LatestContext() string {
	latest := f.Latest()
	if latest == nil {
		return NoRecentSnapshot
	}
	return ContextString(latest)
}

func (f *Flow) frequency() int {
	if f.Frequency <= 0 {
		return DefaultFrequency
	}
	return f.Frequency
}

func (f *Flow) maxSnapshots() int {
	if f.MaxSnapshots <= 0 {
		return DefaultMaxSnapshots
	}
	return f.MaxSnapshots
}

// Export writes the stored records to path atomically.
func (f *Flow) Export(path string) error {
	data, err := json.MarshalIndent(f.Records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot records: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("opening pending file: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()

	if _, err := pf.Write(data); err != nil {
		return fmt.Errorf("writing snapshot records: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Import replaces the stored records with those in path.
func (f *Flow) Import(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	f.Records = records
	if limit := f.maxSnapshots(); len(f.Records) > limit {
		f.Records = f.Records[len(f.Records)-limit:]
	}
	return nil
}
