package style

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/roach88/citesync/internal/store"
)

//go:embed styles/*.cue
var builtin embed.FS

// Backend persists installed styles.
type Backend interface {
	PutStyle(ctx context.Context, rec store.StyleRecord) error
	ListStyles(ctx context.Context) ([]store.StyleRecord, error)
}

// Registry holds the styles available to documents. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	styles  map[string]*Style
	backend Backend
}

// NewRegistry returns a registry preloaded with the built-in styles.
func NewRegistry() (*Registry, error) {
	r := &Registry{styles: make(map[string]*Style)}

	entries, err := fs.ReadDir(builtin, "styles")
	if err != nil {
		return nil, fmt.Errorf("read built-in styles: %w", err)
	}
	for _, e := range entries {
		name := path.Join("styles", e.Name())
		src, err := fs.ReadFile(builtin, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		s, err := Compile(name, string(src))
		if err != nil {
			return nil, fmt.Errorf("built-in style %s: %w", name, err)
		}
		r.styles[s.ID] = s
	}
	return r, nil
}

// Attach loads installed styles from b and persists future installs there.
func (r *Registry) Attach(ctx context.Context, b Backend) error {
	records, err := b.ListStyles(ctx)
	if err != nil {
		return fmt.Errorf("load installed styles: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		s, err := Compile(rec.ID, rec.Source)
		if err != nil {
			return fmt.Errorf("installed style %s: %w", rec.ID, err)
		}
		r.styles[s.ID] = s
	}
	r.backend = b
	return nil
}

// Get returns the style with id, or an error wrapping ErrNotFound.
func (r *Registry) Get(id string) (*Style, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.styles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Add installs s, persisting it when a backend is attached.
func (r *Registry) Add(ctx context.Context, s *Style, origin string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.backend != nil {
		if err := r.backend.PutStyle(ctx, store.StyleRecord{
			ID:     s.ID,
			Title:  s.Title,
			Source: s.Source,
			Origin: origin,
		}); err != nil {
			return err
		}
	}
	r.styles[s.ID] = s
	return nil
}

// List returns all styles ordered by id.
func (r *Registry) List() []*Style {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Style, 0, len(r.styles))
	for _, s := range r.styles {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDir compiles every .cue file in dir and adds it to the registry
// without persisting it. It returns the number of styles loaded.
func (r *Registry) LoadDir(dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return 0, fmt.Errorf("list styles in %s: %w", dir, err)
	}
	sort.Strings(paths)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", p, err)
		}
		s, err := Compile(p, string(src))
		if err != nil {
			return 0, err
		}
		r.styles[s.ID] = s
	}
	return len(paths), nil
}
