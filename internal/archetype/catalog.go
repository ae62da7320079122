package archetype

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"forest.app/forest/common/metrics"
)

const reloadDebounce = 250 * time.Millisecond

type file struct {
	Archetypes []Archetype `yaml:"archetypes"`
}

// ParseDefinitions reads a YAML (or JSON) document with a top-level
// "archetypes" list.
func ParseDefinitions(data []byte) ([]Archetype, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding archetypes: %w", err)
	}
	if len(f.Archetypes) == 0 {
		return nil, fmt.Errorf("no archetypes defined")
	}
	seen := make(map[string]bool, len(f.Archetypes))
	for i := range f.Archetypes {
		a := &f.Archetypes[i]
		if err := a.validate(); err != nil {
			return nil, err
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("duplicate archetype %q", a.Name)
		}
		seen[a.Name] = true
	}
	return f.Archetypes, nil
}

func LoadFile(path string) ([]Archetype, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading archetypes file: %w", err)
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Catalog holds the archetype definitions new users start from. It can
// follow its file and swap definitions when the file changes.
type Catalog struct {
	path string

	mu   sync.RWMutex
	defs []Archetype
}

// NewCatalog loads path. An empty path or a missing file falls back to the
// built-in definitions.
func NewCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path, defs: Defaults()}
	if path == "" {
		return c, nil
	}
	defs, err := LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("archetypes file not found, using built-in definitions", "path", path)
			c.path = ""
			return c, nil
		}
		return nil, err
	}
	c.defs = defs
	return c, nil
}

// Definitions returns a copy of the current definitions.
func (c *Catalog) Definitions() []Archetype {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Archetype, len(c.defs))
	for i := range c.defs {
		out[i] = *c.defs[i].clone()
	}
	return out
}

// Reload re-reads the file. Invalid content keeps the previous definitions.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	defs, err := LoadFile(c.path)
	if err != nil {
		metrics.ArchetypeReloadsTotal.WithLabelValues("error").Inc()
		return err
	}
	c.mu.Lock()
	c.defs = defs
	c.mu.Unlock()
	metrics.ArchetypeReloadsTotal.WithLabelValues("ok").Inc()
	slog.Info("archetypes reloaded", "path", c.path, "count", len(defs))
	return nil
}

// Watch reloads the catalog whenever its file is written or replaced, until
// ctx is done. It blocks; run it in its own goroutine.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating archetypes watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so atomic replacements (rename over the file) are seen.
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		return fmt.Errorf("watching %s: %w", c.path, err)
	}
	target := filepath.Clean(c.path)

	timer := time.NewTimer(reloadDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(reloadDebounce)
			}
		case <-timer.C:
			if err := c.Reload(); err != nil {
				slog.Error("archetypes reload failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("archetypes watcher error", "error", err)
		}
	}
}
