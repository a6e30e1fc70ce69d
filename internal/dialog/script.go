package dialog

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/host"
)

// Answer fills in a dialog's IO.
type Answer func(ctx context.Context, io any) error

// Script is a Displayer that replays queued answers per dialog name. A
// dialog with nothing queued uses its default answer, or is cancelled.
//
// Thread-safety: Script is safe for concurrent use.
type Script struct {
	mu       sync.Mutex
	queued   map[string][]Answer
	defaults map[string]Answer
	calls    []string
}

// NewScript returns an empty script.
func NewScript() *Script {
	return &Script{
		queued:   make(map[string][]Answer),
		defaults: make(map[string]Answer),
	}
}

// Queue appends one-shot answers for name.
func (s *Script) Queue(name string, answers ...Answer) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued[name] = append(s.queued[name], answers...)
	return s
}

// Default sets the answer used when nothing is queued for name.
func (s *Script) Default(name string, a Answer) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[name] = a
	return s
}

// Display implements Displayer.
func (s *Script) Display(ctx context.Context, doc host.Document, name string, io any) error {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	var answer Answer
	if q := s.queued[name]; len(q) > 0 {
		answer = q[0]
		s.queued[name] = q[1:]
	} else {
		answer = s.defaults[name]
	}
	s.mu.Unlock()

	if answer == nil {
		return fmt.Errorf("%w: no answer for %s", ErrCancelled, name)
	}
	return answer(ctx, io)
}

// Calls returns the names of displayed dialogs in order.
func (s *Script) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ResetCalls forgets recorded calls. Queued answers are kept.
func (s *Script) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Cancel dismisses the dialog.
func Cancel() Answer {
	return func(ctx context.Context, io any) error {
		return ErrCancelled
	}
}

// Cite answers QuickFormat with items, or SelectItems with their ids, and
// runs the preview the way the real dialog does before accepting.
func Cite(items ...citation.Item) Answer {
	return func(ctx context.Context, io any) error {
		switch v := io.(type) {
		case *CitationIO:
			v.Citation.Items = make([]citation.Item, len(items))
			copy(v.Citation.Items, items)
			if v.Preview != nil {
				if _, err := v.Preview(ctx, v.Citation); err != nil {
					return err
				}
			}
			return nil
		case *SelectItemsIO:
			v.ItemIDs = v.ItemIDs[:0]
			for _, it := range items {
				v.ItemIDs = append(v.ItemIDs, it.ID)
			}
			return nil
		default:
			return fmt.Errorf("cite answer: unexpected io %T", io)
		}
	}
}

// CiteIDs is Cite with bare item ids.
func CiteIDs(ids ...int64) Answer {
	items := make([]citation.Item, len(ids))
	for i, id := range ids {
		items[i] = citation.Item{ID: id}
	}
	return Cite(items...)
}

// Prefs answers DocPrefs by letting fn edit the preferences.
func Prefs(fn func(*DocPrefsIO)) Answer {
	return func(ctx context.Context, io any) error {
		v, ok := io.(*DocPrefsIO)
		if !ok {
			return fmt.Errorf("prefs answer: unexpected io %T", io)
		}
		fn(v)
		return nil
	}
}

// UseStyle answers DocPrefs by selecting styleID.
func UseStyle(styleID string) Answer {
	return Prefs(func(p *DocPrefsIO) { p.StyleID = styleID })
}

// Bibliography answers EditBibliography by letting fn record edits.
func Bibliography(fn func(*EditBibliographyIO)) Answer {
	return func(ctx context.Context, io any) error {
		v, ok := io.(*EditBibliographyIO)
		if !ok {
			return fmt.Errorf("bibliography answer: unexpected io %T", io)
		}
		fn(v)
		return nil
	}
}

// Accept closes any dialog without changes.
func Accept() Answer {
	return func(ctx context.Context, io any) error { return nil }
}
